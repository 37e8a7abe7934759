package repository

import (
	"context"

	"github.com/yourusername/currency-relay-bot/internal/domain/entity"
)

// CurrencyCatalogRepository valyuta aliaslari bilan ishlash uchun interface
type CurrencyCatalogRepository interface {
	// UpdateCatalog butun katalogni yangilash
	UpdateCatalog(ctx context.Context, catalog entity.CurrencyCatalog) error

	// GetCatalog katalogni olish
	GetCatalog(ctx context.Context) (*entity.CurrencyCatalog, error)

	// FindByCode kod bo'yicha aliaslarni olish
	FindByCode(ctx context.Context, code string) ([]entity.CurrencyAlias, error)

	// Clear katalogni tozalash
	Clear(ctx context.Context) error
}
