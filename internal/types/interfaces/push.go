package interfaces

import (
	"context"

	"github.com/vaultstream/vaultstream/internal/types"
)

// RenderedMessage is the fully rendered payload a PlatformPusher sends (C8, §4.8).
type RenderedMessage struct {
	Text      string
	MediaURLs []string
	MediaMode types.MediaMode
}

// PlatformPusher delivers a RenderedMessage to one chat on one platform
// (§4.9). The generic_telegram implementation wraps a bot's HTTP API; tests
// use a fake in-memory implementation (§8).
type PlatformPusher interface {
	Platform() string
	Push(ctx context.Context, botToken, chatID string, msg RenderedMessage) (messageID string, err error)
}

// BatchPlatformPusher is the optional capability a PlatformPusher advertises
// when its transport supports sending several messages as one forwarded
// unit (§4.8 step 3, e.g. QQ's send_forward_msg). The push worker type-asserts
// for this before grouping a claimed batch; platforms without it (plain
// Telegram bot API) always get Push called once per item.
type BatchPlatformPusher interface {
	PlatformPusher
	PushForward(ctx context.Context, botToken, chatID string, msgs []RenderedMessage) (messageID string, err error)
}

// PushService orchestrates the push worker loop: claim due queue items,
// dedup and rate-limit check, render, push, record (C8).
type PushService interface {
	RunOnce(ctx context.Context) (processed int, err error)
}
