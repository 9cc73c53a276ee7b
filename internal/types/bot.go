package types

import "time"

// BotConfig is a registered bot credential/transport (§3, C9).
type BotConfig struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name     string `gorm:"size:255;not null" json:"name"`
	Platform string `gorm:"size:32;not null;default:telegram" json:"platform"`

	TokenCiphertext string `gorm:"type:text" json:"-"`
	TokenMasked     string `gorm:"-" json:"token_masked,omitempty"`

	Enabled   bool `gorm:"not null;default:true" json:"enabled"`
	IsPrimary bool `gorm:"not null;default:false;index" json:"is_primary"`

	LastHealthCheckAt     *time.Time `json:"last_health_check_at,omitempty"`
	LastHealthCheckOK     bool       `json:"last_health_check_ok"`
	LastHealthCheckDetail string     `gorm:"type:text" json:"last_health_check_detail,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Chats []BotChat `gorm:"constraint:OnDelete:CASCADE" json:"chats,omitempty"`
}

// BotChat is a destination chat/channel reachable through a BotConfig (§3).
type BotChat struct {
	ID      int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	BotID   int64  `gorm:"not null;uniqueIndex:uniq_bot_chat" json:"bot_id"`
	ChatID  string `gorm:"size:128;not null;uniqueIndex:uniq_bot_chat" json:"chat_id"`
	Title   string `gorm:"size:255" json:"title,omitempty"`
	IsNSFWChannel bool   `gorm:"not null;default:false" json:"is_nsfw_channel"`
	NSFWChatID    *int64 `json:"nsfw_chat_id,omitempty"` // alternate BotChat.ID used by nsfw_policy=separate_channel (§4.6 step 3)
	Enabled bool   `gorm:"not null;default:true" json:"enabled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MaskToken returns a display-safe form of a bot token: its first four and
// last two characters around "...", e.g. "1234...Xy"; a token of 8
// characters or fewer becomes "****" (§4.11).
func MaskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-2:]
}
