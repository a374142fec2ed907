package reqctx

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey string

const (
	keyRID    ctxKey = "rid"
	keyUserID ctxKey = "user_id"
)

// WithRID stores the request correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, keyRID, rid)
}

// RID returns the correlation id if present.
func RID(ctx context.Context) string {
	v, _ := ctx.Value(keyRID).(string)
	return v
}

// WithUserID stores the authenticated user id.
func WithUserID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, keyUserID, uid)
}

// UserID returns the authenticated user id if present.
func UserID(ctx context.Context) string {
	v, _ := ctx.Value(keyUserID).(string)
	return v
}

// Logger enriches base with the request fields carried by ctx.
func Logger(ctx context.Context, base zerolog.Logger) *zerolog.Logger {
	lc := base.With()
	if rid := RID(ctx); rid != "" {
		lc = lc.Str("rid", rid)
	}
	if uid := UserID(ctx); uid != "" {
		lc = lc.Str("uid", uid)
	}
	l := lc.Logger()
	return &l
}
