package audit

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"
)

type ipKey struct{}

// GetIPAddress extracts the client address, preferring the first hop of
// X-Forwarded-For.
func GetIPAddress(c echo.Context) string {
	if fwd := c.Request().Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := c.Request().Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return c.RealIP()
}

// WithIP returns a context carrying the client address for audit entries.
func WithIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ipKey{}, ip)
}

// RequestContext returns the request context annotated with the caller's IP.
func RequestContext(c echo.Context) context.Context {
	return WithIP(c.Request().Context(), GetIPAddress(c))
}

// IPFrom returns the address stored by WithIP, or "".
func IPFrom(ctx context.Context) string {
	ip, _ := ctx.Value(ipKey{}).(string)
	return ip
}
