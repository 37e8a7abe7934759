package awesomeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/currency-relay-bot/internal/domain/entity"
	"github.com/yourusername/currency-relay-bot/internal/domain/repository"
)

// DefaultBaseURL AwesomeAPI manzili
const DefaultBaseURL = "https://economia.awesomeapi.com.br"

const quoteCurrency = "BRL"

type client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient live kurslar uchun AwesomeAPI client
func NewClient(baseURL string, timeout time.Duration) repository.LiveRateRepository {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type lastQuote struct {
	Code       string `json:"code"`
	CodeIn     string `json:"codein"`
	Bid        string `json:"bid"`
	Ask        string `json:"ask"`
	PctChange  string `json:"pctChange"`
	Timestamp  string `json:"timestamp"`
	CreateDate string `json:"create_date"`
}

type notFoundError struct {
	status int
}

func (e *notFoundError) Error() string {
	return fmt.Sprintf("awesomeapi status %d", e.status)
}

// LatestQuotes bitta so'rovda barcha kodlar. AwesomeAPI rejects the whole batch
// when one pair is unknown, so that case falls back to one request per code.
func (c *client) LatestQuotes(ctx context.Context, codes []string) (map[string]entity.RateQuote, error) {
	if len(codes) == 0 {
		return map[string]entity.RateQuote{}, nil
	}

	quotes, err := c.fetch(ctx, codes)
	if err == nil {
		return quotes, nil
	}

	var nf *notFoundError
	if !errors.As(err, &nf) {
		return nil, err
	}
	if len(codes) == 1 {
		return map[string]entity.RateQuote{}, nil
	}

	log.Printf("AwesomeAPI batch rad etildi (%v), kodlar alohida so'ralmoqda", err)
	out := make(map[string]entity.RateQuote, len(codes))
	for _, code := range codes {
		single, err := c.fetch(ctx, []string{code})
		if err != nil {
			if errors.As(err, &nf) {
				continue
			}
			return nil, err
		}
		for k, v := range single {
			out[k] = v
		}
	}
	return out, nil
}

func (c *client) fetch(ctx context.Context, codes []string) (map[string]entity.RateQuote, error) {
	pairs := make([]string, 0, len(codes))
	for _, code := range codes {
		pairs = append(pairs, code+"-"+quoteCurrency)
	}
	url := fmt.Sprintf("%s/json/last/%s", c.baseURL, strings.Join(pairs, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return nil, &notFoundError{status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("awesomeapi status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload map[string]lastQuote
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("awesomeapi javobini o'qib bo'lmadi: %w", err)
	}

	out := make(map[string]entity.RateQuote, len(codes))
	for _, code := range codes {
		info, ok := payload[code+quoteCurrency]
		if !ok {
			continue
		}
		price := info.Bid
		if price == "" {
			price = info.Ask
		}
		value, ok := parseNumber(price)
		if !ok {
			continue
		}

		quote := entity.RateQuote{
			Code:       code,
			Base:       quoteCurrency,
			Value:      value,
			Provenance: entity.ProvenanceLive,
			QuotedAt:   parseTimestamp(info.Timestamp, info.CreateDate),
		}
		if pct, ok := parseNumber(info.PctChange); ok {
			quote.PctChange = &pct
		}
		if !quote.QuotedAt.IsZero() {
			y, m, d := quote.QuotedAt.Date()
			quote.ValidFor = time.Date(y, m, d, 0, 0, 0, 0, quote.QuotedAt.Location())
		}
		out[code] = quote
	}
	return out, nil
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseTimestamp(unix, created string) time.Time {
	if n, err := strconv.ParseInt(strings.TrimSpace(unix), 10, 64); err == nil && n > 0 {
		return time.Unix(n, 0)
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04:05-0700"} {
		if t, err := time.ParseInLocation(layout, strings.TrimSpace(created), time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
