// Package proxy keeps a static pool of SOCKS5 egress proxies ranked by
// measured latency.
package proxy

import (
	"context"
	"io"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"groupbuy/detailworker/logger"
	"groupbuy/detailworker/pkg/errors"
)

const (
	dialTimeout      = 5 * time.Second
	handshakeTimeout = 3 * time.Second
	probeParallelism = 10
	// unreachable proxies sort last
	deadLatency = time.Hour
)

// Info holds one proxy with its last probe result
type Info struct {
	Addr     string        `json:"addr"`
	Latency  time.Duration `json:"latency"`
	LastTest time.Time     `json:"last_test"`
	Working  bool          `json:"working"`
}

// Pool ranks a fixed set of SOCKS5 proxies. It implements the fetcher's
// ProxyPicker.
type Pool struct {
	addrs          []string
	proxies        []Info
	mutex          sync.RWMutex
	lastUpdate     time.Time
	updateInterval time.Duration
	probe          func(ctx context.Context, addr string) (time.Duration, error)
	log            *logger.Logger
}

// ParseAddrs splits a comma separated PROXY_ADDRS value
func ParseAddrs(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		part = strings.TrimPrefix(part, "socks5://")
		if part == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(part); err != nil {
			continue
		}
		out = append(out, part)
	}
	return out
}

// NewPool creates a pool over addrs. Nothing is probed until Update.
func NewPool(addrs []string, updateInterval time.Duration) *Pool {
	if updateInterval <= 0 {
		updateInterval = 30 * time.Minute
	}
	return &Pool{
		addrs:          addrs,
		updateInterval: updateInterval,
		probe:          ProbeSOCKS5,
		log:            logger.ForProxy(),
	}
}

// Len returns the number of configured proxies
func (p *Pool) Len() int {
	return len(p.addrs)
}

// ProbeSOCKS5 dials addr and performs the no-auth SOCKS5 greeting. The
// returned latency covers both steps.
func ProbeSOCKS5(ctx context.Context, addr string) (time.Duration, error) {
	start := time.Now()
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(handshakeTimeout))

	// VER=5, NMETHODS=1, METHODS=0 (no authentication)
	if _, err := conn.Write([]byte{0x05, 0x01, 0x00}); err != nil {
		return 0, err
	}
	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		return 0, err
	}
	if resp[0] != 0x05 || resp[1] != 0x00 {
		return 0, errors.New(errors.ErrorTypeFetch, "proxy", "not a no-auth SOCKS5 server: "+addr, nil)
	}
	return time.Since(start), nil
}

// Update probes every proxy and re-ranks the pool, fastest first
func (p *Pool) Update(ctx context.Context) {
	results := make([]Info, len(p.addrs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(probeParallelism)
	for i, addr := range p.addrs {
		g.Go(func() error {
			info := Info{Addr: addr, Latency: deadLatency, LastTest: time.Now()}
			latency, err := p.probe(gctx, addr)
			if err != nil {
				p.log.Debug().Err(err).Str("proxy", addr).Msg("Proxy probe failed")
			} else {
				info.Latency = latency
				info.Working = true
			}
			results[i] = info
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Latency < results[j].Latency
	})

	working := 0
	for _, r := range results {
		if r.Working {
			working++
		}
	}

	p.mutex.Lock()
	p.proxies = results
	p.lastUpdate = time.Now()
	p.mutex.Unlock()

	fastest := "none"
	if working > 0 {
		fastest = results[0].Latency.String()
	}
	p.log.Info().Int("working", working).Int("total", len(results)).Str("fastest", fastest).Msg("Updated proxy list")
}

// Pick returns the fastest working proxy
func (p *Pool) Pick() (string, bool) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	for _, info := range p.proxies {
		if info.Working {
			return info.Addr, true
		}
	}
	return "", false
}

// Top returns up to n working proxies, fastest first
func (p *Pool) Top(n int) []Info {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	var out []Info
	for _, info := range p.proxies {
		if len(out) == n {
			break
		}
		if info.Working {
			out = append(out, info)
		}
	}
	return out
}

// Stale reports whether the ranking is older than the update interval
func (p *Pool) Stale() bool {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return time.Since(p.lastUpdate) > p.updateInterval
}

// Run re-probes the pool every update interval until ctx is done. A pool
// that is already fresh is not probed again on start.
func (p *Pool) Run(ctx context.Context) {
	if p.Stale() {
		p.Update(ctx)
	}
	ticker := time.NewTicker(p.updateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Update(ctx)
		}
	}
}
