// Package app wires the configured services into a running detail pipeline.
// The worker binary and detailctl share it.
package app

import (
	"context"
	"strings"
	"time"

	"groupbuy/detailworker/config"
	"groupbuy/detailworker/helpers"
	"groupbuy/detailworker/internal/extractor"
	"groupbuy/detailworker/internal/manager"
	"groupbuy/detailworker/logger"
	"groupbuy/detailworker/pkg/errors"
	"groupbuy/detailworker/services/browser"
	"groupbuy/detailworker/services/cache"
	"groupbuy/detailworker/services/proxy"
	"groupbuy/detailworker/services/store"
)

// App holds all the initialized services
type App struct {
	Config    *config.Config
	Store     store.ListingStore
	SQLite    *store.SQLiteStore
	Memo      cache.Memo
	Proxies   *proxy.Pool
	Browser   browser.Automation
	Extractor *extractor.Service
	Metrics   *manager.Metrics
	Manager   *manager.Manager

	closers []func()
}

// Build connects the store, memo tier, proxies and browser from cfg
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, Metrics: manager.NewMetrics()}
	logger.Init()
	log := logger.Default

	switch cfg.StoreDriver {
	case "postgres":
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		a.Store = pg
		a.closers = append(a.closers, pg.Close)
		log.Info().Msg("Connected to Postgres listing store")
	default:
		sq, err := store.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := sq.Migrate(ctx); err != nil {
			sq.Close()
			return nil, err
		}
		a.Store = sq
		a.SQLite = sq
		a.closers = append(a.closers, func() { sq.Close() })
		log.Info().Str("path", cfg.SQLitePath).Msg("Opened SQLite listing store")
	}

	switch cfg.MemoBackend {
	case "memcache":
		mc := cache.NewMemcacheService(cfg.MemcacheAddr)
		if err := mc.Ping(); err != nil {
			log.Warn().Err(errors.NewCache("memcache", "ping "+cfg.MemcacheAddr, err)).Msg("Memcache unreachable, lookups will miss until it is back")
		}
		a.Memo = cache.NewSharedMemo(mc, cfg.MemoryTTL)
	default:
		a.Memo = cache.NewLRUMemo(cfg.MemoSize, cfg.MemoryTTL)
	}

	var picker helpers.ProxyPicker
	if len(cfg.ProxyAddrs) > 0 {
		a.Proxies = proxy.NewPool(proxy.ParseAddrs(strings.Join(cfg.ProxyAddrs, ",")), 30*time.Minute)
		a.Proxies.Update(ctx)
		picker = a.Proxies
	}

	a.Browser = browser.NewFromConfig(cfg)
	if a.Browser != nil {
		a.closers = append(a.closers, func() { a.Browser.Close() })
	}

	var automation extractor.BrowserAutomation
	if a.Browser != nil {
		automation = a.Browser
	}
	a.Extractor = extractor.NewService(
		helpers.NewHTTPFetcher(cfg.FetchTimeout, picker),
		extractor.NewRegistry(automation),
	)

	a.Manager = manager.New(manager.Options{
		Store:           a.Store,
		Memo:            a.Memo,
		Extractor:       a.Extractor,
		MemoryTTL:       cfg.MemoryTTL,
		FreshnessWindow: cfg.FreshnessWindow,
		Metrics:         a.Metrics,
	})
	return a, nil
}

// Close releases every service in reverse order of creation
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
