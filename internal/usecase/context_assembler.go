package usecase

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yourusername/currency-relay-bot/internal/domain/entity"
)

const (
	// LiveContextHeader marks a realtime block.
	LiveContextHeader = "[Contexto em tempo real]"
	// HistoricalContextHeader marks a historical block.
	HistoricalContextHeader = "[Contexto historico]"

	dayLayout      = "02/01/2006"
	dayTimeLayout  = "02/01/2006 15:04"
	fullTimeLayout = "02/01/2006 15:04:05"
)

// ContextAssembler renders resolver output into one context block.
type ContextAssembler struct{}

// NewContextAssembler yangi assembler
func NewContextAssembler() *ContextAssembler {
	return &ContextAssembler{}
}

// Live renders realtime quotes. Only symbols present in quotes are listed;
// an empty block means nothing to tell.
func (a *ContextAssembler) Live(codes []string, quotes map[string]entity.RateQuote) string {
	lines, updated := a.LiveLines(codes, quotes)
	if len(lines) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(LiveContextHeader)
	sb.WriteString("\nCotacoes consultadas via AwesomeAPI:\n")
	sb.WriteString(strings.Join(lines, "\n"))
	if !updated.IsZero() {
		sb.WriteString(fmt.Sprintf("\nDados consultados em %s.", updated.Format(fullTimeLayout)))
	}
	return sb.String()
}

// LiveLines one line per resolved symbol plus the first known update time.
func (a *ContextAssembler) LiveLines(codes []string, quotes map[string]entity.RateQuote) ([]string, time.Time) {
	var lines []string
	var updated time.Time
	for _, code := range orderedCodes(codes, quotes) {
		q := quotes[code]
		line := fmt.Sprintf("- %s/%s: %s", code, baseOf(q), formatBRL(q.Value))
		if q.PctChange != nil {
			line += fmt.Sprintf(" (variacao diaria: %+.2f%%)", *q.PctChange)
		}
		lines = append(lines, line)
		if updated.IsZero() && !q.QuotedAt.IsZero() {
			updated = q.QuotedAt
		}
	}
	return lines, updated
}

// LiveUnavailable the live collaborator failed as a whole.
func (a *ContextAssembler) LiveUnavailable() string {
	return LiveContextHeader + "\n" +
		"Solicitei cotacoes de moedas, mas o servico externo nao respondeu. " +
		"Explique ao usuario que pode tentar novamente em instantes."
}

// Historical renders a batch historical lookup. Currencies without data are
// omitted; when nothing resolved an explicit unavailability note is returned.
func (a *ContextAssembler) Historical(res HistoricalResult) string {
	requested := res.Requested.Format(dayLayout)

	if len(res.Quotes) == 0 {
		if len(res.Failed) > 0 {
			return HistoricalContextHeader + "\n" +
				fmt.Sprintf("Tentei consultar o Banco Central para %s, mas ocorreu um erro externo. ", requested) +
				"Avise que o usuario pode tentar novamente em instantes."
		}
		return HistoricalContextHeader + "\n" +
			fmt.Sprintf("Cotacao historica indisponivel para %s: nao encontrei cotacoes oficiais do Banco Central apos checar alguns dias uteis. ", requested) +
			"Explique que apenas datas uteis com divulgacao da PTAX estao disponiveis."
	}

	var sb strings.Builder
	sb.WriteString(HistoricalContextHeader)
	sb.WriteString("\nCotacoes oficiais do Banco Central (PTAX).")
	sb.WriteString(fmt.Sprintf("\nDados solicitados para %s:", requested))
	for _, code := range orderedCodes(nil, res.Quotes) {
		sb.WriteString("\n")
		sb.WriteString(a.historicalLine(res.Quotes[code], res.Requested))
	}
	return sb.String()
}

func (a *ContextAssembler) historicalLine(q entity.RateQuote, requested time.Time) string {
	line := fmt.Sprintf("- %s/%s: venda %s", q.Code, baseOf(q), formatBRL(q.Value))
	if q.Buy != nil {
		line += fmt.Sprintf(" | compra %s", formatBRL(*q.Buy))
	}

	var suffix []string
	if !q.QuotedAt.IsZero() {
		suffix = append(suffix, q.QuotedAt.Format(dayTimeLayout))
	} else if !q.ValidFor.IsZero() {
		suffix = append(suffix, q.ValidFor.Format(dayLayout))
	}
	if !q.ValidFor.IsZero() && !sameDay(q.ValidFor, requested) {
		suffix = append(suffix, fmt.Sprintf("cotacao de %s, ultimo registro antes de %s",
			q.ValidFor.Format(dayLayout), requested.Format(dayLayout)))
	}
	if len(suffix) > 0 {
		line += " - " + strings.Join(suffix, " | ")
	}
	return line
}

// FutureDate marker used instead of any resolver call.
func (a *ContextAssembler) FutureDate(requested time.Time) string {
	return HistoricalContextHeader + "\n" +
		fmt.Sprintf("O usuario pediu cotacoes para %s, uma data futura. ", requested.Format(dayLayout)) +
		"Nao e possivel fornecer cotacoes futuras; explique que apenas datas ate hoje estao disponiveis."
}

func orderedCodes(preferred []string, quotes map[string]entity.RateQuote) []string {
	var out []string
	seen := make(map[string]bool)
	for _, c := range preferred {
		if _, ok := quotes[c]; ok && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	var rest []string
	for c := range quotes {
		if !seen[c] {
			rest = append(rest, c)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func baseOf(q entity.RateQuote) string {
	if q.Base == "" {
		return "BRL"
	}
	return q.Base
}

func formatBRL(v float64) string {
	return fmt.Sprintf("R$ %.4f", v)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
