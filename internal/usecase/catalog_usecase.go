package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yourusername/currency-relay-bot/internal/domain/entity"
	"github.com/yourusername/currency-relay-bot/internal/domain/repository"
)

// CatalogUseCase valyuta aliaslari katalogi bilan bog'liq business logic
type CatalogUseCase interface {
	// LoadFile startup paytida katalogni fayldan yuklash
	LoadFile(ctx context.Context, path string) (int, error)

	// UploadCatalog Excel fayldan katalogni yuklash (faqat admin)
	UploadCatalog(ctx context.Context, chatID int64, fileData []byte, filename string) (int, error)

	// IsAdmin admin ekanligini tekshirish
	IsAdmin(chatID int64) bool

	// GetCatalogInfo katalog haqida ma'lumot
	GetCatalogInfo(ctx context.Context) (string, error)

	// AliasesFor kod uchun katalogdagi aliaslar
	AliasesFor(ctx context.Context, code string) ([]string, error)

	// ResetCatalog katalogni tozalash, faqat standart aliaslar qoladi (faqat admin)
	ResetCatalog(ctx context.Context, chatID int64) error
}

type catalogUseCase struct {
	catalogRepo repository.CurrencyCatalogRepository
	parser      repository.CatalogParser
	detector    *CurrencyDetector
	admins      map[int64]bool
}

// NewCatalogUseCase yangi CatalogUseCase yaratish
func NewCatalogUseCase(
	catalogRepo repository.CurrencyCatalogRepository,
	parser repository.CatalogParser,
	detector *CurrencyDetector,
	adminChatIDs []int64,
) CatalogUseCase {
	admins := make(map[int64]bool, len(adminChatIDs))
	for _, id := range adminChatIDs {
		admins[id] = true
	}
	return &catalogUseCase{
		catalogRepo: catalogRepo,
		parser:      parser,
		detector:    detector,
		admins:      admins,
	}
}

// LoadFile katalogni fayldan yuklash
func (u *catalogUseCase) LoadFile(ctx context.Context, path string) (int, error) {
	aliases, err := u.parser.ParseAliases(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return u.apply(ctx, aliases, path)
}

// UploadCatalog Excel fayldan katalogni yuklash
func (u *catalogUseCase) UploadCatalog(ctx context.Context, chatID int64, fileData []byte, filename string) (int, error) {
	if !u.IsAdmin(chatID) {
		return 0, entity.ErrNotAdmin
	}

	aliases, err := u.parser.ParseAliasesFromBytes(ctx, fileData, filename)
	if err != nil {
		return 0, fmt.Errorf("failed to parse excel: %w", err)
	}
	return u.apply(ctx, aliases, filename)
}

func (u *catalogUseCase) apply(ctx context.Context, aliases []entity.CurrencyAlias, source string) (int, error) {
	if len(aliases) == 0 {
		return 0, fmt.Errorf("no currency aliases found in %s", source)
	}

	catalog := entity.CurrencyCatalog{
		Aliases:   aliases,
		UpdatedAt: time.Now(),
		Source:    source,
	}
	if err := u.catalogRepo.UpdateCatalog(ctx, catalog); err != nil {
		return 0, fmt.Errorf("failed to update catalog: %w", err)
	}
	u.detector.SetAliases(aliases)

	return len(aliases), nil
}

// IsAdmin admin ekanligini tekshirish
func (u *catalogUseCase) IsAdmin(chatID int64) bool {
	return u.admins[chatID]
}

// GetCatalogInfo katalog haqida ma'lumot
func (u *catalogUseCase) GetCatalogInfo(ctx context.Context) (string, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Moedas reconhecidas: %s\n", strings.Join(u.detector.Codes(), ", ")))

	catalog, err := u.catalogRepo.GetCatalog(ctx)
	if err != nil {
		sb.WriteString("Catalogo extra: nenhum (apenas apelidos padrao).")
		return sb.String(), nil
	}

	counts := make(map[string]int)
	for _, a := range catalog.Aliases {
		counts[a.Code]++
	}
	codes := make([]string, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	sb.WriteString(fmt.Sprintf("Catalogo: %s\n", catalog.Source))
	sb.WriteString(fmt.Sprintf("Atualizado: %s\n", catalog.UpdatedAt.Format("2006-01-02 15:04")))
	sb.WriteString(fmt.Sprintf("Total de apelidos: %d\n", len(catalog.Aliases)))
	for _, code := range codes {
		sb.WriteString(fmt.Sprintf("  • %s: %d\n", code, counts[code]))
	}
	return sb.String(), nil
}

// AliasesFor kod uchun katalogdagi aliaslar
func (u *catalogUseCase) AliasesFor(ctx context.Context, code string) ([]string, error) {
	aliases, err := u.catalogRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(aliases))
	for _, a := range aliases {
		out = append(out, a.Alias)
	}
	sort.Strings(out)
	return out, nil
}

// ResetCatalog katalogni tozalash
func (u *catalogUseCase) ResetCatalog(ctx context.Context, chatID int64) error {
	if !u.IsAdmin(chatID) {
		return entity.ErrNotAdmin
	}
	if err := u.catalogRepo.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear catalog: %w", err)
	}
	u.detector.SetAliases(nil)
	return nil
}
