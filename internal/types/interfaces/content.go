package interfaces

import (
	"context"

	"github.com/vaultstream/vaultstream/internal/types"
)

// ContentRepository persists Content and its ContentSource submissions (§3).
type ContentRepository interface {
	Create(ctx context.Context, c *types.Content) error
	Get(ctx context.Context, id int64) (*types.Content, error)
	GetByCanonicalURL(ctx context.Context, platform, canonicalURL string) (*types.Content, error)
	Update(ctx context.Context, c *types.Content) error
	List(ctx context.Context, f ContentFilter) ([]types.Content, int64, error)

	AddSource(ctx context.Context, src *types.ContentSource) error

	MarkReview(ctx context.Context, id int64, status types.ReviewStatus, by, note string) error
}

// ContentFilter captures the list/search parameters of GET /api/contents (§6).
type ContentFilter struct {
	Platform     string
	Status       types.ContentStatus
	ReviewStatus types.ReviewStatus
	Tag          string
	IsNSFW       *bool
	Offset       int
	Limit        int
}
