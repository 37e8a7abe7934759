package ptax

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yourusername/currency-relay-bot/internal/domain/entity"
	"github.com/yourusername/currency-relay-bot/internal/domain/repository"
)

// DefaultBaseURL Banco Central OData servisi
const DefaultBaseURL = "https://olinda.bcb.gov.br/olinda/servico/PTAX/versao/v1/odata"

const closingBulletin = "fechamento"

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

type client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient PTAX tarixiy kurslari uchun client
func NewClient(baseURL string, timeout time.Duration) repository.HistoricalRateRepository {
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

type record struct {
	CotacaoCompra   *float64 `json:"cotacaoCompra"`
	CotacaoVenda    *float64 `json:"cotacaoVenda"`
	DataHoraCotacao string   `json:"dataHoraCotacao"`
	TipoBoletim     string   `json:"tipoBoletim"`
}

type response struct {
	Value []record `json:"value"`
}

// QuoteOn bitta kun uchun PTAX. Bo'sh javob nil, nil.
func (c *client) QuoteOn(ctx context.Context, code string, day time.Time) (*entity.RateQuote, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(code, day), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ptax status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("ptax javobini o'qib bo'lmadi: %w", err)
	}

	rec := selectRecord(code, payload.Value)
	if rec == nil || rec.CotacaoVenda == nil {
		return nil, nil
	}

	y, m, d := day.Date()
	quote := &entity.RateQuote{
		Code:       code,
		Base:       "BRL",
		Value:      *rec.CotacaoVenda,
		Buy:        rec.CotacaoCompra,
		ValidFor:   time.Date(y, m, d, 0, 0, 0, 0, day.Location()),
		QuotedAt:   parseTimestamp(rec.DataHoraCotacao, day.Location()),
		Provenance: entity.ProvenanceHistorical,
	}
	return quote, nil
}

func (c *client) endpoint(code string, day time.Time) string {
	date := day.Format("01-02-2006")
	if code == "USD" {
		return fmt.Sprintf("%s/CotacaoDolarDia(dataCotacao=@dataCotacao)?@dataCotacao='%s'&$format=json",
			c.baseURL, date)
	}
	return fmt.Sprintf("%s/CotacaoMoedaPeriodo(moeda=@moeda,dataInicial=@dataInicial,dataFinalCotacao=@dataFinalCotacao)"+
		"?@moeda='%s'&@dataInicial='%s'&@dataFinalCotacao='%s'&$top=1&$orderby=dataHoraCotacao%%20desc&$format=json",
		c.baseURL, code, date, date)
}

// selectRecord dollar endpoint has a single row; other currencies prefer the closing bulletin.
func selectRecord(code string, values []record) *record {
	if len(values) == 0 {
		return nil
	}
	if code == "USD" {
		return &values[0]
	}
	for i := range values {
		if strings.EqualFold(strings.TrimSpace(values[i].TipoBoletim), closingBulletin) {
			return &values[i]
		}
	}
	return &values[0]
}

func parseTimestamp(value string, loc *time.Location) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}
