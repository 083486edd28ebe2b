package core

import "context"

type contextKey string

const (
	ctxKeyClientIP  contextKey = "client_ip"
	ctxKeyUserAgent contextKey = "client_ua"
)

// ContextWithClient records who issued a request so operation logs can name
// the caller.
func ContextWithClient(ctx context.Context, ip, userAgent string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyClientIP, ip)
	return context.WithValue(ctx, ctxKeyUserAgent, userAgent)
}

// ClientFromContext returns the caller recorded by ContextWithClient.
func ClientFromContext(ctx context.Context) (ip, userAgent string) {
	ip, _ = ctx.Value(ctxKeyClientIP).(string)
	userAgent, _ = ctx.Value(ctxKeyUserAgent).(string)
	return ip, userAgent
}

// clientFields returns slog args for the caller, if known.
func clientFields(ctx context.Context) []any {
	ip, ua := ClientFromContext(ctx)
	var args []any
	if ip != "" {
		args = append(args, "client_ip", ip)
	}
	if ua != "" {
		args = append(args, "user_agent", ua)
	}
	return args
}
