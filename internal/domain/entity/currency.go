package entity

import "time"

// Provenance where a quote came from
type Provenance string

const (
	ProvenanceLive       Provenance = "live"
	ProvenanceHistorical Provenance = "historical"
)

// CurrencyMention currency detected in free text.
type CurrencyMention struct {
	Code  string
	Span  string
	Start int
	End   int
}

// Detection detector output for a whole message. At most one reference date.
type Detection struct {
	Mentions      []CurrencyMention
	Codes         []string
	ReferenceDate *time.Time
	DateSpan      string
	// FutureDate is set when ReferenceDate lies after today.
	FutureDate bool
}

// HasCurrencies reports whether anything was detected.
func (d Detection) HasCurrencies() bool {
	return len(d.Codes) > 0
}

// RateQuote a resolved quote against BRL.
type RateQuote struct {
	Code  string
	Base  string
	Value float64
	// Buy is only filled for historical quotes.
	Buy       *float64
	PctChange *float64
	// ValidFor is the calendar day the quote belongs to.
	ValidFor   time.Time
	QuotedAt   time.Time
	Provenance Provenance
	// WalkBack number of days the historical search stepped back.
	WalkBack int
}

// CurrencyAlias maps a lexical alias to an ISO-like code.
type CurrencyAlias struct {
	Code  string
	Alias string
	Name  string
}

// CurrencyCatalog valyuta aliaslari katalogi
type CurrencyCatalog struct {
	Aliases   []CurrencyAlias
	UpdatedAt time.Time
	Source    string // Excel fayl nomi
}
