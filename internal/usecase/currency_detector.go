package usecase

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/yourusername/currency-relay-bot/internal/domain/entity"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultCurrencyAliases built-in recognized set: majors plus bitcoin.
var DefaultCurrencyAliases = []entity.CurrencyAlias{
	{Code: "USD", Alias: "dolar", Name: "Dolar americano"},
	{Code: "USD", Alias: "dollar", Name: "Dolar americano"},
	{Code: "USD", Alias: "usd"},
	{Code: "USD", Alias: "us$"},
	{Code: "EUR", Alias: "euro", Name: "Euro"},
	{Code: "EUR", Alias: "eur"},
	{Code: "EUR", Alias: "€"},
	{Code: "GBP", Alias: "libra", Name: "Libra esterlina"},
	{Code: "GBP", Alias: "pound"},
	{Code: "GBP", Alias: "gbp"},
	{Code: "GBP", Alias: "£"},
	{Code: "JPY", Alias: "iene", Name: "Iene"},
	{Code: "JPY", Alias: "yen"},
	{Code: "JPY", Alias: "jpy"},
	{Code: "JPY", Alias: "¥"},
	{Code: "ARS", Alias: "peso", Name: "Peso argentino"},
	{Code: "ARS", Alias: "ars"},
	{Code: "BTC", Alias: "bitcoin", Name: "Bitcoin"},
	{Code: "BTC", Alias: "btc"},
}

// genericRateWords imply USD and EUR only when no specific currency is named,
// unlike always adding them: "cotacao do iene" asks for JPY alone.
var genericRateWords = regexp.MustCompile(`(?:^|[^\p{L}\p{N}])(cotacao|cotacoes|cambio|exchange rate)(?:[^\p{L}\p{N}]|$)`)

var genericCodes = []string{"EUR", "USD"}

var (
	relativeDateRe = regexp.MustCompile(`\b(anteontem|day before yesterday|ontem|yesterday)\b`)
	numericDateRe  = regexp.MustCompile(`\b(\d{1,2})[/.-](\d{1,2})[/.-](\d{4}|\d{2})\b`)
	isoDateRe      = regexp.MustCompile(`\b(\d{4})[/.-](\d{1,2})[/.-](\d{1,2})\b`)
	ptLongDateRe   = regexp.MustCompile(`\b(\d{1,2})\s+de\s+(janeiro|fevereiro|marco|abril|maio|junho|julho|agosto|setembro|outubro|novembro|dezembro)\s+de\s+(\d{4})\b`)
	enLongDateRe   = regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
	enDayFirstRe   = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{4})\b`)
)

var monthNames = map[string]time.Month{
	"janeiro": time.January, "fevereiro": time.February, "marco": time.March,
	"abril": time.April, "maio": time.May, "junho": time.June,
	"julho": time.July, "agosto": time.August, "setembro": time.September,
	"outubro": time.October, "novembro": time.November, "dezembro": time.December,
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

type aliasMatcher struct {
	code string
	re   *regexp.Regexp
}

// CurrencyDetector lexical currency and date detection.
type CurrencyDetector struct {
	mu       sync.RWMutex
	matchers []aliasMatcher
	aliases  map[string]string // alias -> code
	now      func() time.Time
}

// NewCurrencyDetector builds a detector over the default aliases plus extra ones.
func NewCurrencyDetector(now func() time.Time, extra ...entity.CurrencyAlias) *CurrencyDetector {
	if now == nil {
		now = time.Now
	}
	d := &CurrencyDetector{now: now, aliases: make(map[string]string)}
	d.SetAliases(extra)
	return d
}

// SetAliases replaces the extra aliases; built-in ones always stay.
func (d *CurrencyDetector) SetAliases(extra []entity.CurrencyAlias) {
	aliases := make(map[string]string, len(DefaultCurrencyAliases)+len(extra))
	for _, a := range append(append([]entity.CurrencyAlias(nil), DefaultCurrencyAliases...), extra...) {
		alias := foldText(strings.TrimSpace(a.Alias))
		code := strings.ToUpper(strings.TrimSpace(a.Code))
		if alias == "" || code == "" {
			continue
		}
		aliases[alias] = code
	}

	keys := make([]string, 0, len(aliases))
	for k := range aliases {
		keys = append(keys, k)
	}
	// longer aliases first so "us$" wins over shorter overlaps
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	matchers := make([]aliasMatcher, 0, len(keys))
	for _, k := range keys {
		matchers = append(matchers, aliasMatcher{code: aliases[k], re: aliasPattern(k)})
	}

	d.mu.Lock()
	d.aliases = aliases
	d.matchers = matchers
	d.mu.Unlock()
}

// Codes recognized currency codes, sorted.
func (d *CurrencyDetector) Codes() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	seen := make(map[string]bool)
	var codes []string
	for _, code := range d.aliases {
		if !seen[code] {
			seen[code] = true
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes
}

func aliasPattern(alias string) *regexp.Regexp {
	r := []rune(alias)
	body := regexp.QuoteMeta(alias)
	prefix, suffix := "", ""
	if isWordRune(r[0]) {
		prefix = `(?:^|[^\p{L}\p{N}])`
	}
	if last := r[len(r)-1]; isWordRune(last) {
		if unicode.IsLetter(last) {
			// plurals: dolares, euros, libras
			body += `(?:es|s)?`
		}
		suffix = `(?:[^\p{L}\p{N}]|$)`
	}
	return regexp.MustCompile(prefix + "(" + body + ")" + suffix)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// foldText lowercases and strips accents (cotação -> cotacao).
func foldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// Detect scans text for currency mentions and a single reference date.
func (d *CurrencyDetector) Detect(text string) entity.Detection {
	folded := foldText(text)
	var det entity.Detection

	det.Mentions = d.detectMentions(folded)
	seen := make(map[string]bool)
	for _, m := range det.Mentions {
		if !seen[m.Code] {
			seen[m.Code] = true
			det.Codes = append(det.Codes, m.Code)
		}
	}
	if len(det.Codes) == 0 && genericRateWords.MatchString(folded) {
		det.Codes = append(det.Codes, genericCodes...)
	}
	sort.Strings(det.Codes)

	today := dateOf(d.now())
	if day, span, ok := detectReferenceDate(folded, today); ok {
		det.ReferenceDate = &day
		det.DateSpan = span
		det.FutureDate = day.After(today)
	}

	return det
}

func (d *CurrencyDetector) detectMentions(folded string) []entity.CurrencyMention {
	d.mu.RLock()
	matchers := d.matchers
	d.mu.RUnlock()

	taken := make([]bool, len(folded))
	var mentions []entity.CurrencyMention
	for _, m := range matchers {
		for _, loc := range m.re.FindAllStringSubmatchIndex(folded, -1) {
			start, end := loc[2], loc[3]
			if overlaps(taken, start, end) {
				continue
			}
			for i := start; i < end; i++ {
				taken[i] = true
			}
			mentions = append(mentions, entity.CurrencyMention{
				Code:  m.code,
				Span:  folded[start:end],
				Start: start,
				End:   end,
			})
		}
	}

	sort.Slice(mentions, func(i, j int) bool { return mentions[i].Start < mentions[j].Start })
	return mentions
}

func overlaps(taken []bool, start, end int) bool {
	for i := start; i < end; i++ {
		if taken[i] {
			return true
		}
	}
	return false
}

type dateCandidate struct {
	pos  int
	day  time.Time
	span string
}

// detectReferenceDate earliest valid date expression in the text wins.
func detectReferenceDate(folded string, today time.Time) (time.Time, string, bool) {
	var candidates []dateCandidate

	for _, loc := range relativeDateRe.FindAllStringSubmatchIndex(folded, -1) {
		word := folded[loc[2]:loc[3]]
		back := 1
		if word == "anteontem" || word == "day before yesterday" {
			back = 2
		}
		candidates = append(candidates, dateCandidate{pos: loc[0], day: today.AddDate(0, 0, -back), span: word})
	}

	for _, loc := range numericDateRe.FindAllStringSubmatchIndex(folded, -1) {
		year := normalizeYear(atoi(folded[loc[6]:loc[7]]))
		if day, ok := buildDate(year, atoi(folded[loc[4]:loc[5]]), atoi(folded[loc[2]:loc[3]]), today.Location()); ok {
			candidates = append(candidates, dateCandidate{pos: loc[0], day: day, span: folded[loc[0]:loc[1]]})
		}
	}

	for _, loc := range isoDateRe.FindAllStringSubmatchIndex(folded, -1) {
		if day, ok := buildDate(atoi(folded[loc[2]:loc[3]]), atoi(folded[loc[4]:loc[5]]), atoi(folded[loc[6]:loc[7]]), today.Location()); ok {
			candidates = append(candidates, dateCandidate{pos: loc[0], day: day, span: folded[loc[0]:loc[1]]})
		}
	}

	for _, loc := range ptLongDateRe.FindAllStringSubmatchIndex(folded, -1) {
		month := int(monthNames[folded[loc[4]:loc[5]]])
		if day, ok := buildDate(atoi(folded[loc[6]:loc[7]]), month, atoi(folded[loc[2]:loc[3]]), today.Location()); ok {
			candidates = append(candidates, dateCandidate{pos: loc[0], day: day, span: folded[loc[0]:loc[1]]})
		}
	}

	for _, loc := range enLongDateRe.FindAllStringSubmatchIndex(folded, -1) {
		month := int(monthNames[folded[loc[2]:loc[3]]])
		if day, ok := buildDate(atoi(folded[loc[6]:loc[7]]), month, atoi(folded[loc[4]:loc[5]]), today.Location()); ok {
			candidates = append(candidates, dateCandidate{pos: loc[0], day: day, span: folded[loc[0]:loc[1]]})
		}
	}

	for _, loc := range enDayFirstRe.FindAllStringSubmatchIndex(folded, -1) {
		month := int(monthNames[folded[loc[4]:loc[5]]])
		if day, ok := buildDate(atoi(folded[loc[6]:loc[7]]), month, atoi(folded[loc[2]:loc[3]]), today.Location()); ok {
			candidates = append(candidates, dateCandidate{pos: loc[0], day: day, span: folded[loc[0]:loc[1]]})
		}
	}

	if len(candidates) == 0 {
		return time.Time{}, "", false
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].pos < candidates[j].pos })
	return candidates[0].day, candidates[0].span, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func normalizeYear(year int) int {
	if year < 100 {
		if year < 50 {
			return 2000 + year
		}
		return 1900 + year
	}
	return year
}

// buildDate rejects dates that time.Date would silently normalize (31/02).
func buildDate(year, month, day int, loc *time.Location) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
