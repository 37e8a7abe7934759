package repository

import (
	"context"

	"github.com/yourusername/currency-relay-bot/internal/domain/entity"
)

// ChatStateRepository chat holatini saqlash uchun interface
type ChatStateRepository interface {
	// Load returns nil, nil when the chat was never saved.
	Load(ctx context.Context, chatID int64) (*entity.ChatSnapshot, error)

	// Save chat holatini to'liq yozish
	Save(ctx context.Context, snapshot entity.ChatSnapshot) error

	// Delete chat holatini o'chirish
	Delete(ctx context.Context, chatID int64) error

	// ListChatIDs saqlangan barcha chatlar
	ListChatIDs(ctx context.Context) ([]int64, error)
}
