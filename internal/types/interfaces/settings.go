package interfaces

import "context"

// SettingsStore is the mutable, DB-backed runtime configuration layer (§4.11):
// DB value -> env var -> compile-time default, memoized with a TTL.
type SettingsStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string, isSecret bool) error
	All(ctx context.Context) (map[string]string, error)
}
