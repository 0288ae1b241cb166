package userui

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// throttle caps attempts per client IP on the credential forms.
type throttle struct {
	limiter *limiter.Limiter
	logger  *slog.Logger
}

func newThrottle(rate string, logger *slog.Logger) (*throttle, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, err
	}
	return &throttle{limiter: limiter.New(memory.NewStore(), r), logger: logger}, nil
}

// allow fails open when the limiter store errors.
func (t *throttle) allow(ctx context.Context, key string) bool {
	if t == nil {
		return true
	}
	res, err := t.limiter.Get(ctx, key)
	if err != nil {
		t.logger.Warn("userui: rate limiter failed", "err", err)
		return true
	}
	return !res.Reached
}

// throttleKey buckets attempts of one action by client address.
func throttleKey(action string, r *http.Request) string {
	return action + ":" + clientAddr(r)
}

// clientAddr prefers the first X-Forwarded-For hop when it parses as an IP
// and falls back to the socket peer.
func clientAddr(r *http.Request) string {
	if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); first != "" {
		if ip, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return ip.Unmap().String()
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
