package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/yourusername/currency-relay-bot/internal/domain/entity"
	"github.com/yourusername/currency-relay-bot/internal/domain/repository"
)

type memoryCurrencyCatalogRepository struct {
	mu      sync.RWMutex
	byCode  map[string][]entity.CurrencyAlias // key: ISO kod
	catalog *entity.CurrencyCatalog
}

// NewMemoryCurrencyCatalogRepository in-memory katalog repository yaratish
func NewMemoryCurrencyCatalogRepository() repository.CurrencyCatalogRepository {
	return &memoryCurrencyCatalogRepository{
		byCode:  make(map[string][]entity.CurrencyAlias),
		catalog: nil,
	}
}

// UpdateCatalog butun katalogni yangilash
func (m *memoryCurrencyCatalogRepository) UpdateCatalog(ctx context.Context, catalog entity.CurrencyCatalog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Eski aliaslarni o'chirish
	m.byCode = make(map[string][]entity.CurrencyAlias)

	seen := make(map[string]bool)
	aliases := make([]entity.CurrencyAlias, 0, len(catalog.Aliases))
	for _, alias := range catalog.Aliases {
		alias.Code = strings.ToUpper(strings.TrimSpace(alias.Code))
		alias.Alias = strings.ToLower(strings.TrimSpace(alias.Alias))
		key := alias.Code + "|" + alias.Alias
		if alias.Code == "" || alias.Alias == "" || seen[key] {
			continue
		}
		seen[key] = true
		m.byCode[alias.Code] = append(m.byCode[alias.Code], alias)
		aliases = append(aliases, alias)
	}

	catalog.Aliases = aliases
	m.catalog = &catalog
	return nil
}

// GetCatalog katalogni olish
func (m *memoryCurrencyCatalogRepository) GetCatalog(ctx context.Context) (*entity.CurrencyCatalog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.catalog == nil {
		return nil, fmt.Errorf("catalog not loaded")
	}
	out := *m.catalog
	out.Aliases = append([]entity.CurrencyAlias(nil), m.catalog.Aliases...)
	return &out, nil
}

// FindByCode kod bo'yicha aliaslarni olish
func (m *memoryCurrencyCatalogRepository) FindByCode(ctx context.Context, code string) ([]entity.CurrencyAlias, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	aliases, ok := m.byCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, fmt.Errorf("currency not found: %s", code)
	}
	return append([]entity.CurrencyAlias(nil), aliases...), nil
}

// Clear katalogni tozalash
func (m *memoryCurrencyCatalogRepository) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.byCode = make(map[string][]entity.CurrencyAlias)
	m.catalog = nil
	return nil
}
