package parser

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"github.com/yourusername/currency-relay-bot/internal/domain/entity"
)

func buildWorkbook(t *testing.T, rows [][]interface{}) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	return f
}

func workbookBytes(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := buildWorkbook(t, rows)
	defer f.Close()
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseAliasesWithHeader(t *testing.T) {
	data := workbookBytes(t, [][]interface{}{
		{"Nome", "Codigo", "Apelidos"},
		{"Franco suico", "chf", "franco; franco suico | swiss franc"},
		{"Invalido", "XXXX", "nada"},
		{},
		{"Dolar canadense", "CAD", "dolar canadense, loonie"},
	})

	aliases, err := NewExcelParser().ParseAliasesFromBytes(context.Background(), data, "moedas.xlsx")
	require.NoError(t, err)

	assert.Equal(t, []entity.CurrencyAlias{
		{Code: "CHF", Alias: "chf", Name: "Franco suico"},
		{Code: "CHF", Alias: "franco", Name: "Franco suico"},
		{Code: "CHF", Alias: "franco suico", Name: "Franco suico"},
		{Code: "CHF", Alias: "swiss franc", Name: "Franco suico"},
		{Code: "CAD", Alias: "cad", Name: "Dolar canadense"},
		{Code: "CAD", Alias: "dolar canadense", Name: "Dolar canadense"},
		{Code: "CAD", Alias: "loonie", Name: "Dolar canadense"},
	}, aliases)
}

func TestParseAliasesWithoutHeader(t *testing.T) {
	f := buildWorkbook(t, [][]interface{}{
		{"SEK", "coroa sueca", "Coroa sueca"},
		{"NOK", "coroa norueguesa"},
	})
	path := filepath.Join(t.TempDir(), "moedas.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	aliases, err := NewExcelParser().ParseAliases(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []entity.CurrencyAlias{
		{Code: "SEK", Alias: "sek", Name: "Coroa sueca"},
		{Code: "SEK", Alias: "coroa sueca", Name: "Coroa sueca"},
		{Code: "NOK", Alias: "nok"},
		{Code: "NOK", Alias: "coroa norueguesa"},
	}, aliases)
}

func TestParseAliasesRejectsEmptyCatalog(t *testing.T) {
	data := workbookBytes(t, [][]interface{}{
		{"codigo", "apelidos"},
		{"12", "numero"},
	})

	_, err := NewExcelParser().ParseAliasesFromBytes(context.Background(), data, "vazio.xlsx")
	assert.Error(t, err)
}

func TestParseAliasesRejectsGarbage(t *testing.T) {
	_, err := NewExcelParser().ParseAliasesFromBytes(context.Background(), []byte("not a workbook"), "x.xlsx")
	assert.Error(t, err)
}

func TestSplitAliases(t *testing.T) {
	assert.Equal(t, []string{"a", "b c", "d"}, splitAliases(" A ,b C;; |d"))
	assert.Empty(t, splitAliases(" , ;"))
}
