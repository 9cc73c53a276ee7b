package repository

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"

	"gorm.io/gorm"

	apperrors "github.com/vaultstream/vaultstream/internal/errors"
	"github.com/vaultstream/vaultstream/internal/types"
	"github.com/vaultstream/vaultstream/internal/types/interfaces"
)

type botRepository struct {
	db        *gorm.DB
	aead      cipher.AEAD
}

// NewBotRepository builds the gorm-backed interfaces.BotRepository.
// encryptionKey must be exactly 32 bytes (AES-256-GCM) and comes from process
// config (config.SecurityConfig.BotTokenEncryptionKey), not the DB-backed
// settings layer (§4.10: tokens are never stored or logged in plaintext).
func NewBotRepository(db *gorm.DB, encryptionKey []byte) (interfaces.BotRepository, error) {
	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindFatal, "initializing bot token cipher", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindFatal, "initializing GCM", err)
	}
	return &botRepository{db: db, aead: aead}, nil
}

func (r *botRepository) encrypt(plaintext string) (string, error) {
	nonce := make([]byte, r.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := r.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (r *botRepository) decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}
	ns := r.aead.NonceSize()
	if len(raw) < ns {
		return "", errors.New("ciphertext too short")
	}
	plain, err := r.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func (r *botRepository) Create(ctx context.Context, b *types.BotConfig) error {
	enc, err := r.encrypt(b.TokenCiphertext)
	if err != nil {
		return apperrors.Wrap(apperrors.KindValidation, "encrypting bot token", err)
	}
	b.TokenCiphertext = enc
	if err := r.db.WithContext(ctx).Create(b).Error; err != nil {
		return apperrors.Wrap(apperrors.KindTransient, "creating bot", err)
	}
	return nil
}

func (r *botRepository) Get(ctx context.Context, id int64) (*types.BotConfig, error) {
	var b types.BotConfig
	err := r.db.WithContext(ctx).Preload("Chats").First(&b, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("bot not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, "loading bot", err)
	}
	b.TokenMasked = types.MaskToken(b.TokenCiphertext)
	return &b, nil
}

func (r *botRepository) GetDecryptedToken(ctx context.Context, id int64) (string, error) {
	var b types.BotConfig
	if err := r.db.WithContext(ctx).First(&b, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.NewNotFoundError("bot not found")
		}
		return "", apperrors.Wrap(apperrors.KindTransient, "loading bot", err)
	}
	token, err := r.decrypt(b.TokenCiphertext)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindFatal, "decrypting bot token", err)
	}
	return token, nil
}

func (r *botRepository) List(ctx context.Context) ([]types.BotConfig, error) {
	var bots []types.BotConfig
	if err := r.db.WithContext(ctx).Preload("Chats").Find(&bots).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, "listing bots", err)
	}
	for i := range bots {
		bots[i].TokenMasked = types.MaskToken(bots[i].TokenCiphertext)
	}
	return bots, nil
}

func (r *botRepository) Update(ctx context.Context, b *types.BotConfig) error {
	if b.TokenCiphertext != "" {
		enc, err := r.encrypt(b.TokenCiphertext)
		if err != nil {
			return apperrors.Wrap(apperrors.KindValidation, "encrypting bot token", err)
		}
		b.TokenCiphertext = enc
	}
	if err := r.db.WithContext(ctx).Save(b).Error; err != nil {
		return apperrors.Wrap(apperrors.KindTransient, "updating bot", err)
	}
	return nil
}

func (r *botRepository) Activate(ctx context.Context, id int64) error {
	var bot types.BotConfig
	if err := r.db.WithContext(ctx).First(&bot, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewNotFoundError("bot not found")
		}
		return apperrors.Wrap(apperrors.KindTransient, "loading bot", err)
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&types.BotConfig{}).
			Where("platform = ? AND id <> ?", bot.Platform, id).
			Update("is_primary", false).Error; err != nil {
			return err
		}
		return tx.Model(&types.BotConfig{}).Where("id = ?", id).Update("is_primary", true).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.KindTransient, "activating bot", err)
	}
	return nil
}

func (r *botRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&types.BotConfig{}, id)
	if res.Error != nil {
		return apperrors.Wrap(apperrors.KindTransient, "deleting bot", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NewNotFoundError("bot not found")
	}
	return nil
}

func (r *botRepository) UpsertChat(ctx context.Context, chat *types.BotChat) error {
	if err := r.db.WithContext(ctx).Save(chat).Error; err != nil {
		return apperrors.Wrap(apperrors.KindTransient, "upserting bot chat", err)
	}
	return nil
}

func (r *botRepository) ListChats(ctx context.Context, botID int64) ([]types.BotChat, error) {
	var chats []types.BotChat
	if err := r.db.WithContext(ctx).Where("bot_id = ?", botID).Find(&chats).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, "listing bot chats", err)
	}
	return chats, nil
}

func (r *botRepository) GetChat(ctx context.Context, id int64) (*types.BotChat, error) {
	var chat types.BotChat
	err := r.db.WithContext(ctx).First(&chat, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("bot chat not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, "loading bot chat", err)
	}
	return &chat, nil
}
