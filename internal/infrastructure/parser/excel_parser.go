package parser

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
	"github.com/yourusername/currency-relay-bot/internal/domain/entity"
	"github.com/yourusername/currency-relay-bot/internal/domain/repository"
)

var currencyCodeRe = regexp.MustCompile(`^[A-Z]{3}$`)

type excelParser struct{}

// NewExcelParser yangi Excel parser yaratish
func NewExcelParser() repository.CatalogParser {
	return &excelParser{}
}

// ParseAliases Excel fayldan aliaslarni o'qish
func (e *excelParser) ParseAliases(ctx context.Context, filePath string) ([]entity.CurrencyAlias, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel file: %w", err)
	}
	defer f.Close()

	return e.parseExcelFile(f)
}

// ParseAliasesFromBytes byte array dan parse qilish
func (e *excelParser) ParseAliasesFromBytes(ctx context.Context, data []byte, filename string) ([]entity.CurrencyAlias, error) {
	reader := bytes.NewReader(data)
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel from bytes: %w", err)
	}
	defer f.Close()

	return e.parseExcelFile(f)
}

// parseExcelFile Excel faylni parse qilish
// Kutilgan format: kod | aliaslar (vergul bilan) | nom
func (e *excelParser) parseExcelFile(f *excelize.File) ([]entity.CurrencyAlias, error) {
	// Birinchi sheet ni olish
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("excel file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("excel file is empty")
	}

	// Header qatori borligini tekshirish
	// Agar birinchi qatorning 1-ustuni valyuta kodi bo'lsa, header yo'q
	columnMap := e.mapColumns(rows[0])
	startRow := 1
	if _, ok := columnMap["code"]; !ok {
		startRow = 0
		columnMap = map[string]int{"code": 0, "aliases": 1, "name": 2}
		log.Printf("Catalog: header topilmadi, default mapping: %v", columnMap)
	}

	codeCol := columnMap["code"]
	aliasCol, hasAlias := columnMap["aliases"]
	nameCol, hasName := columnMap["name"]

	var aliases []entity.CurrencyAlias
	for i := startRow; i < len(rows); i++ {
		row := rows[i]

		// Bo'sh qatorlarni skip qilish
		if isEmptyRow(row) || len(row) <= codeCol {
			continue
		}

		code := strings.ToUpper(strings.TrimSpace(row[codeCol]))
		if !currencyCodeRe.MatchString(code) {
			log.Printf("Catalog row %d: noto'g'ri kod '%s' - skipping", i, row[codeCol])
			continue
		}

		name := ""
		if hasName && len(row) > nameCol {
			name = strings.TrimSpace(row[nameCol])
		}

		// Kodning o'zi ham alias
		aliases = append(aliases, entity.CurrencyAlias{Code: code, Alias: strings.ToLower(code), Name: name})

		if hasAlias && len(row) > aliasCol {
			for _, alias := range splitAliases(row[aliasCol]) {
				aliases = append(aliases, entity.CurrencyAlias{Code: code, Alias: alias, Name: name})
			}
		}
	}

	if len(aliases) == 0 {
		return nil, fmt.Errorf("excel file has no currency rows")
	}

	return aliases, nil
}

// mapColumns header qatoridan column mapping yaratish
func (e *excelParser) mapColumns(header []string) map[string]int {
	columnMap := make(map[string]int)

	for i, col := range header {
		colName := strings.ToLower(strings.TrimSpace(col))

		switch {
		case contains(colName, "code", "codigo", "kod", "moeda", "currency", "iso"):
			if _, ok := columnMap["code"]; !ok {
				columnMap["code"] = i
			}
		case contains(colName, "alias", "apelido", "sinonim", "keyword", "palavra"):
			columnMap["aliases"] = i
		case contains(colName, "name", "nome", "nom", "descricao"):
			columnMap["name"] = i
		}
	}

	return columnMap
}

// splitAliases vergul, nuqta-vergul yoki | bilan ajratilgan aliaslar
func splitAliases(cell string) []string {
	fields := strings.FieldsFunc(cell, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	})

	var out []string
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// isEmptyRow bo'sh qatorni tekshirish
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// contains tekshirish uchun helper
func contains(str string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(str, keyword) {
			return true
		}
	}
	return false
}
