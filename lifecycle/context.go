package lifecycle

import "context"

type suspendKey struct{}

// WithoutSyncing returns a context in which Observer calls do nothing.
func WithoutSyncing(ctx context.Context) context.Context {
	return context.WithValue(ctx, suspendKey{}, true)
}

// WithSyncing re-enables syncing below a WithoutSyncing context.
func WithSyncing(ctx context.Context) context.Context {
	return context.WithValue(ctx, suspendKey{}, false)
}

// SyncEnabled reports whether Observer calls made with ctx reach the index.
func SyncEnabled(ctx context.Context) bool {
	suspended, _ := ctx.Value(suspendKey{}).(bool)
	return !suspended
}
