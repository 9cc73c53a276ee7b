package interfaces

import (
	"context"

	"github.com/vaultstream/vaultstream/internal/types"
)

// Adapter normalizes one platform's content into a ParsedContent (§4.4).
type Adapter interface {
	// Name identifies the adapter, matched against Content.Platform.
	Name() string

	// Supports reports whether this adapter can handle the given URL,
	// letting the registry route without a separate platform field.
	Supports(url string) bool

	// Parse fetches and normalizes url. Errors must be *types.AdapterError.
	Parse(ctx context.Context, url string) (*types.ParsedContent, error)
}

// AdapterRegistry resolves a URL or platform name to its Adapter (§4.4).
type AdapterRegistry interface {
	Register(a Adapter)
	Resolve(url string) (Adapter, error)
	ByPlatform(platform string) (Adapter, error)
}
