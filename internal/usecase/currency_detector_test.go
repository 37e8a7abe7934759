package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/currency-relay-bot/internal/domain/entity"
)

func fixedNow() time.Time {
	return time.Date(2024, time.June, 10, 15, 30, 0, 0, time.UTC)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDetectCurrencies(t *testing.T) {
	d := NewCurrencyDetector(fixedNow)

	tests := []struct {
		name  string
		text  string
		codes []string
	}{
		{"alias with accent", "Quanto está o Dólar hoje?", []string{"USD"}},
		{"plural and code", "dolares e EUR", []string{"EUR", "USD"}},
		{"symbols", "tenho €100 e £20", []string{"EUR", "GBP"}},
		{"crypto", "e o bitcoin?", []string{"BTC"}},
		{"generic word", "qual a cotação de hoje?", []string{"EUR", "USD"}},
		{"generic plus specific", "cotacao do iene", []string{"JPY"}},
		{"no currency", "bom dia, tudo bem?", nil},
		{"substring is not a mention", "europa e eurovisao", nil},
		{"us dollar symbol", "paguei US$ 30", []string{"USD"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det := d.Detect(tt.text)
			assert.Equal(t, tt.codes, det.Codes)
			assert.Nil(t, det.ReferenceDate)
		})
	}
}

func TestDetectMentionsPositions(t *testing.T) {
	d := NewCurrencyDetector(fixedNow)
	det := d.Detect("euro ou dolar")

	require.Len(t, det.Mentions, 2)
	assert.Equal(t, "EUR", det.Mentions[0].Code)
	assert.Equal(t, "euro", det.Mentions[0].Span)
	assert.Equal(t, "USD", det.Mentions[1].Code)
	assert.Less(t, det.Mentions[0].Start, det.Mentions[1].Start)
}

func TestDetectReferenceDate(t *testing.T) {
	d := NewCurrencyDetector(fixedNow)

	tests := []struct {
		name string
		text string
		want time.Time
	}{
		{"numeric", "dolar em 03/06/2024", day(2024, time.June, 3)},
		{"numeric dots short year", "euro 03.06.24", day(2024, time.June, 3)},
		{"iso", "usd 2024-05-31", day(2024, time.May, 31)},
		{"portuguese long form", "dolar em 3 de junho de 2024", day(2024, time.June, 3)},
		{"portuguese accent", "euro em 7 de março de 2023", day(2023, time.March, 7)},
		{"english long form", "dollar on June 3, 2024", day(2024, time.June, 3)},
		{"english day first", "euro on 3rd June 2024", day(2024, time.June, 3)},
		{"yesterday", "quanto foi o dolar ontem?", day(2024, time.June, 9)},
		{"day before yesterday", "dolar anteontem", day(2024, time.June, 8)},
		{"first date wins", "dolar em 01/02/2024 ou 05/02/2024", day(2024, time.February, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det := d.Detect(tt.text)
			require.NotNil(t, det.ReferenceDate)
			assert.True(t, tt.want.Equal(*det.ReferenceDate), "got %s", det.ReferenceDate)
			assert.False(t, det.FutureDate)
		})
	}
}

func TestDetectRejectsInvalidDate(t *testing.T) {
	d := NewCurrencyDetector(fixedNow)
	det := d.Detect("dolar em 31/02/2024")
	assert.Nil(t, det.ReferenceDate)
	assert.Equal(t, []string{"USD"}, det.Codes)
}

func TestDetectFutureDate(t *testing.T) {
	d := NewCurrencyDetector(fixedNow)
	det := d.Detect("cotacao do dolar em 01/01/2030")
	require.NotNil(t, det.ReferenceDate)
	assert.True(t, det.FutureDate)

	today := d.Detect("dolar em 10/06/2024")
	assert.False(t, today.FutureDate)
}

func TestDetectorCatalogAliases(t *testing.T) {
	d := NewCurrencyDetector(fixedNow)
	assert.Empty(t, d.Detect("quanto vale o franco suico?").Codes)

	d.SetAliases([]entity.CurrencyAlias{{Code: "chf", Alias: "Franco Suíço"}})
	assert.Equal(t, []string{"CHF"}, d.Detect("quanto vale o franco suico?").Codes)
	assert.Contains(t, d.Codes(), "CHF")
	assert.Contains(t, d.Codes(), "USD", "built-in aliases survive catalog updates")
}
