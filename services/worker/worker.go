// Package worker re-scrapes stale listings in the background and announces
// each refreshed detail on the publisher.
package worker

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"groupbuy/detailworker/internal/manager"
	"groupbuy/detailworker/logger"
	"groupbuy/detailworker/services/publisher"
	"groupbuy/detailworker/services/store"
)

// Refresher forces a live extraction of one listing
type Refresher interface {
	Refresh(ctx context.Context, listing store.Listing) manager.Result
}

// Options configures a Worker
type Options struct {
	Interval    time.Duration
	Batch       int
	Concurrency int
	// RPS paces refreshes across the whole batch; zero disables pacing
	RPS             float64
	FreshnessWindow time.Duration
	// Production silences the per-cycle timing log
	Production bool
	Clock      func() time.Time
}

// Stats summarizes one refresh cycle
type Stats struct {
	Listed    int
	Refreshed int
	Published int
	Failed    int
}

// Worker handles the refresh and publish loop
type Worker struct {
	store     store.ListingStore
	refresher Refresher
	publisher publisher.Publisher
	limiter   *rate.Limiter
	opts      Options
	log       *logger.Logger
}

// NewWorker creates a new worker
func NewWorker(st store.ListingStore, refresher Refresher, pub publisher.Publisher, opts Options) *Worker {
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Minute
	}
	if opts.Batch <= 0 {
		opts.Batch = 50
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.FreshnessWindow <= 0 {
		opts.FreshnessWindow = manager.DefaultFreshnessWindow
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), 1)
	}

	return &Worker{
		store:     st,
		refresher: refresher,
		publisher: pub,
		limiter:   limiter,
		opts:      opts,
		log:       logger.ForWorker(),
	}
}

// Start runs a cycle immediately and then every Interval until ctx is done
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	for {
		start := time.Now()
		stats, err := w.RunOnce(ctx)
		if err != nil {
			w.log.Error().Err(err).Msg("Refresh cycle failed")
		} else if !w.opts.Production {
			w.log.Info().
				Int("listed", stats.Listed).
				Int("refreshed", stats.Refreshed).
				Int("published", stats.Published).
				Int("failed", stats.Failed).
				Dur("elapsed", time.Since(start)).
				Msg("Refresh cycle done")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce refreshes one batch of stale listings, then trims the streams.
// Only listing the batch can fail the cycle; per listing failures are
// counted in Stats.
func (w *Worker) RunOnce(ctx context.Context) (Stats, error) {
	cutoff := w.opts.Clock().Add(-w.opts.FreshnessWindow)
	listings, err := w.store.ListStale(ctx, cutoff, w.opts.Batch)
	if err != nil {
		return Stats{}, err
	}

	var refreshed, published, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opts.Concurrency)

	for _, listing := range listings {
		g.Go(func() error {
			if err := w.limiter.Wait(gctx); err != nil {
				// ctx cancelled, leave the rest of the batch for the next cycle
				return nil
			}
			if w.refreshAndPublish(gctx, listing) {
				published.Add(1)
			} else {
				failed.Add(1)
			}
			refreshed.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	if len(listings) > 0 {
		if err := w.publisher.TrimStreams(ctx); err != nil {
			w.log.Error().Err(err).Msg("Stream trimming failed")
		}
	}

	return Stats{
		Listed:    len(listings),
		Refreshed: int(refreshed.Load()),
		Published: int(published.Load()),
		Failed:    int(failed.Load()),
	}, nil
}

// refreshAndPublish reports whether an event was published
func (w *Worker) refreshAndPublish(ctx context.Context, listing store.Listing) bool {
	res := w.refresher.Refresh(ctx, listing)
	log := w.log.WithFields(logger.Fields{"listing": listing.ID, "url": listing.URL})

	if res.Raw == nil {
		log.Debug().Msg("Refresh found nothing")
		return false
	}

	event := publisher.NewDetailEvent(listing.ID, listing.URL, res.Grade, string(res.Source), w.opts.Clock())
	if err := publisher.PublishDetail(ctx, w.publisher, event); err != nil {
		log.WithError(err).Error().Msg("Failed to publish detail event")
		return false
	}
	log.Debug().Str("grade", string(res.Grade)).Msg("Detail refreshed")
	return true
}
