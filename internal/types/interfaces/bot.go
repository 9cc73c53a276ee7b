package interfaces

import (
	"context"

	"github.com/vaultstream/vaultstream/internal/types"
)

// BotRepository persists BotConfig and BotChat rows (§3, C9).
type BotRepository interface {
	Create(ctx context.Context, b *types.BotConfig) error
	Get(ctx context.Context, id int64) (*types.BotConfig, error)
	GetDecryptedToken(ctx context.Context, id int64) (string, error)
	List(ctx context.Context) ([]types.BotConfig, error)
	Update(ctx context.Context, b *types.BotConfig) error
	Delete(ctx context.Context, id int64) error

	// Activate flips is_primary on id and atomically clears it on every
	// other bot sharing the same platform (§4.9 activate(id)).
	Activate(ctx context.Context, id int64) error

	UpsertChat(ctx context.Context, chat *types.BotChat) error
	ListChats(ctx context.Context, botID int64) ([]types.BotChat, error)
	GetChat(ctx context.Context, id int64) (*types.BotChat, error)
}

// BotRegistry is the runtime lookup + health-check surface over
// BotRepository, caching decrypted tokens in memory (C9, §4.10).
type BotRegistry interface {
	Resolve(ctx context.Context, chatID int64) (bot *types.BotConfig, chat *types.BotChat, token string, err error)
	CheckHealth(ctx context.Context, botID int64) error
}

// RemoteChat is one chat/channel the transport reports the bot can reach,
// as returned by ChatSyncer.ListChats (§4.9 sync_chats).
type RemoteChat struct {
	ChatID string
	Title  string
}

// ChatSyncer pulls the live joinable-chat list from a platform transport.
// The Telegram Bot HTTP API and OneBot 11/QQ bridge implementations are
// injected at wiring time and out of scope here (spec.md Non-goals);
// internal/botregistry ships a fake used by tests and as a safe default.
type ChatSyncer interface {
	Platform() string
	ListChats(ctx context.Context, token string) ([]RemoteChat, error)
}

// QRLoginProvider exposes the QR-code login path some platforms (QQ) use
// instead of a static bot token (§4.9 get_qr(id)).
type QRLoginProvider interface {
	Platform() string
	GetQR(ctx context.Context, botID int64) (payload string, isPlaceholder bool, err error)
}
