package repository

import (
	"context"

	"github.com/yourusername/currency-relay-bot/internal/domain/entity"
)

// CatalogParser Excel fayldan valyuta aliaslarini o'qish uchun interface
type CatalogParser interface {
	// ParseAliases fayl yo'lidan o'qish
	ParseAliases(ctx context.Context, filePath string) ([]entity.CurrencyAlias, error)

	// ParseAliasesFromBytes byte array dan parse qilish
	ParseAliasesFromBytes(ctx context.Context, data []byte, filename string) ([]entity.CurrencyAlias, error)
}
