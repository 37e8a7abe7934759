package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/yourusername/currency-relay-bot/internal/domain/entity"
	"google.golang.org/api/option"
)

// DefaultModel Gemini chat modeli
const DefaultModel = "gemini-2.0-flash"

const systemPrompt = `Voce e um atendente virtual brasileiro, cordial e organizado, que responde sempre em portugues do Brasil.
Mantenha um tom humano, empatico e claro, estruturando as respostas em paragrafos curtos ou listas quando ajudar na compreensao.
Explique conceitos de forma simples, ofereca exemplos praticos quando fizer sentido e confirme se a pessoa ficou satisfeita com a solucao.
Deixe claro que voce e um bot especializado em tirar duvidas e consultar cotacoes de moedas, entregando informacoes em tempo real sempre que for solicitado.
Quando nao souber a resposta, admita a limitacao e sugira fontes confiaveis para pesquisa.
Sempre que perguntarem sobre suas capacidades, informe que consegue entender mensagens escritas, audios (transcrevendo-os automaticamente) e imagens.
Caso receba dados em tempo real (como cotacoes), incorpore-os de maneira clara destacando a fonte.
Ao receber cotacoes antigas do Banco Central (PTAX), lembre o usuario da data solicitada e que os valores sao oficiais.
Se o contexto informar que uma data e futura ou que a cotacao esta indisponivel, explique isso sem inventar valores.`

const transcriptionPrompt = "Transcreva fielmente o audio a seguir em portugues. " +
	"Responda apenas com o texto falado, sem comentarios."

const (
	roleUser  = "user"
	roleModel = "model"
)

// Client Gemini chat va transkripsiya
type Client struct {
	client     *genai.Client
	model      *genai.GenerativeModel
	transcribe *genai.GenerativeModel
	sem        chan struct{}
	mu         sync.Mutex
	last       time.Time
	delay      time.Duration
}

// NewGeminiClient yangi Gemini AI client yaratish
func NewGeminiClient(apiKey, model, transcriptionModel string) (*Client, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if model == "" {
		model = DefaultModel
	}
	if transcriptionModel == "" {
		transcriptionModel = model
	}

	chatModel := client.GenerativeModel(model)
	chatModel.SetTemperature(0.4)
	chatModel.SetTopP(0.9)
	chatModel.SetMaxOutputTokens(2048)
	chatModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	audioModel := client.GenerativeModel(transcriptionModel)
	audioModel.SetTemperature(0)

	return &Client{
		client:     client,
		model:      chatModel,
		transcribe: audioModel,
		sem:        make(chan struct{}, 3), // bir vaqtda 3 ta so'rovdan oshirma
		delay:      350 * time.Millisecond, // minimal interval
	}, nil
}

// GenerateReply tarix + kontekst + konsolidatsiya qilingan turn
func (g *Client) GenerateReply(ctx context.Context, history []entity.Turn, turn entity.Consolidation, contextBlock string) (string, error) {
	parts, err := buildParts(turn, contextBlock)
	if err != nil {
		return "", err
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("nothing to send")
	}

	release, err := g.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	cs := g.model.StartChat()
	cs.History = buildHistory(history)

	resp, err := cs.SendMessage(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no response candidates")
	}

	return extractText(resp), nil
}

// Transcribe audio faylni matnga aylantirish
func (g *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("empty audio")
	}
	if mimeType == "" {
		mimeType = "audio/ogg"
	}

	release, err := g.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	resp, err := g.transcribe.GenerateContent(ctx,
		genai.Text(transcriptionPrompt),
		genai.Blob{MIMEType: mimeType, Data: audio},
	)
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no transcription candidates")
	}

	return strings.TrimSpace(extractText(resp)), nil
}

// buildParts context block birinchi, keyin matn va rasmlar tartib bilan
func buildParts(turn entity.Consolidation, contextBlock string) ([]genai.Part, error) {
	var parts []genai.Part
	if strings.TrimSpace(contextBlock) != "" {
		parts = append(parts, genai.Text(contextBlock))
	}

	for _, p := range turn.Parts {
		if p.IsImage() {
			data, err := base64.StdEncoding.DecodeString(p.Image)
			if err != nil {
				return nil, fmt.Errorf("invalid image payload: %w", err)
			}
			parts = append(parts, genai.Blob{MIMEType: p.MIMEType, Data: data})
			continue
		}
		if strings.TrimSpace(p.Text) != "" {
			parts = append(parts, genai.Text(p.Text))
		}
	}
	return parts, nil
}

// buildHistory Gemini user/model navbatini talab qiladi: ketma-ket bir xil rollar birlashtiriladi,
// boshidagi model javoblari tashlanadi.
func buildHistory(turns []entity.Turn) []*genai.Content {
	var out []*genai.Content
	for _, t := range turns {
		text := strings.TrimSpace(t.Content)
		if text == "" {
			continue
		}
		role := roleUser
		if t.Role == entity.RoleAssistant {
			role = roleModel
		}
		if len(out) == 0 && role == roleModel {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Parts = append(out[n-1].Parts, genai.Text(text))
			continue
		}
		out = append(out, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(text)}})
	}
	return out
}

// extractText javobdan textni ajratib olish
func extractText(resp *genai.GenerateContentResponse) string {
	var result strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				result.WriteString(string(txt))
			}
		}
	}
	return result.String()
}

func (g *Client) acquire(ctx context.Context) (func(), error) {
	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	if !g.last.IsZero() {
		if sleep := g.delay - now.Sub(g.last); sleep > 0 {
			time.Sleep(sleep)
			now = time.Now()
		}
	}
	g.last = now

	return func() {
		<-g.sem
	}, nil
}

// Close client ni yopish
func (g *Client) Close() error {
	return g.client.Close()
}
