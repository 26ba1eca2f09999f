package media

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// hostLimiters holds one token bucket per origin host.
type hostLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

func newHostLimiters(rps float64, burst int) *hostLimiters {
	if burst < 1 {
		burst = 1
	}
	return &hostLimiters{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
		burst:    burst,
	}
}

func (h *hostLimiters) get(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.limiters[host]
	if !ok {
		limit := rate.Inf
		if h.rps > 0 {
			limit = rate.Limit(h.rps)
		}
		l = rate.NewLimiter(limit, h.burst)
		h.limiters[host] = l
	}
	return l
}

// wait blocks until the origin of rawURL may receive another request.
func (h *hostLimiters) wait(ctx context.Context, rawURL string) error {
	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = strings.ToLower(u.Host)
	}
	return h.get(host).Wait(ctx)
}
