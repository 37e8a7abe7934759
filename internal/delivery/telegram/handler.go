package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/yourusername/currency-relay-bot/internal/domain/entity"
	"github.com/yourusername/currency-relay-bot/internal/domain/repository"
	"github.com/yourusername/currency-relay-bot/internal/usecase"
)

const (
	maxCatalogSize = 5 * 1024 * 1024
	maxMediaSize   = 20 * 1024 * 1024
)

const (
	shortcutChat     = "Conversar com IA"
	shortcutRates    = "Verificar cotacoes"
	shortcutHelp     = "Ajuda"
	shortcutReset    = "Resetar conversa"
	defaultAudioMIME = "audio/ogg"
)

const (
	welcomeText = "Ola! Eu sou seu assistente virtual integrado com o Gemini, especializado em tirar duvidas e trazer cotacoes em tempo real. " +
		"Posso explicar conceitos, trazer ideias para seus projetos e informar o valor atual de moedas como dolar, euro e mais. " +
		"Use o menu para ver atalhos rapidos ou simplesmente me envie uma mensagem."

	helpText = "Envie perguntas, audios ou imagens e eu responderei usando o Gemini.\n" +
		"Sou um bot tira-duvidas que tambem consulta cotacoes de moedas em tempo real, ideal para acompanhar dolar, euro e outras moedas.\n" +
		"Para valores passados, mencione a moeda e a data (ex.: 'cotacao do dolar em 03/06/2024') que busco a PTAX oficial do Banco Central.\n" +
		"Audios sao transcritos automaticamente, imagens sao analisadas pelo modelo multimodal e voce pode usar o menu para verificar cotacoes a qualquer momento.\n" +
		"\n" +
		"Comandos disponiveis:\n" +
		"/start - mensagem de boas-vindas\n" +
		"/help - guia rapido\n" +
		"/menu - exibe os atalhos principais\n" +
		"/cotacoes - mostra as principais moedas em tempo real\n" +
		"/reset - limpa o historico da conversa\n" +
		"/sobre - sobre este bot"

	aboutText = "Sou um bot tira-duvidas integrando Telegram e Gemini, com cotacoes da AwesomeAPI e da PTAX do Banco Central. " +
		"Fui estruturado para ser facil de manter, seguro com variaveis de ambiente e pronto para evoluir com novas funcoes."

	menuText         = "Selecione um atalho ou envie sua mensagem. O bot tambem pode verificar cotacoes em tempo real:"
	unknownCommand   = "Comando nao reconhecido. Use /help para ver as opcoes."
	resetText        = "Historico apagado. Podemos recomecar!"
	resetShortcut    = "Historico apagado. Pode mandar sua proxima pergunta!"
	chatShortcutText = "Ok, me conte como posso ajudar hoje."
	audioFailure     = "Nao consegui entender o audio agora. Pode tentar novamente ou enviar em texto?"
	imageFailure     = "Nao consegui abrir a imagem que voce enviou. Pode tentar novamente?"
	ratesFailure     = "Nao consegui consultar as cotacoes agora. Tente novamente em instantes."
	ratesEmpty       = "Nao encontrei cotacoes atualizadas neste momento, mas posso tentar novamente se voce quiser."
	ratesHeader      = "Cotacoes em tempo real via AwesomeAPI:\n"
	unsupportedFile  = "Ainda nao consigo ler esse tipo de arquivo. Envie texto, audio ou imagem."
	adminOnly        = "Comando disponivel apenas para administradores."
	bufferBusy       = "Estou encerrando no momento. Tente novamente em instantes."
)

// BotHandler Telegram bot handler
type BotHandler struct {
	bot             *tgbotapi.BotAPI
	chatUseCase     usecase.ChatUseCase
	currencyUseCase usecase.CurrencyUseCase
	catalogUseCase  usecase.CatalogUseCase
	transcriber     repository.TranscriptionRepository
	metrics         repository.MetricsRecorder
	httpClient      *http.Client
	fileEndpoint    string
	requestTimeout  time.Duration

	// har bir chat uchun FIFO navbat
	queueMu sync.Mutex
	queues  map[int64][]*tgbotapi.Message
	running map[int64]bool
	wg      sync.WaitGroup
}

// NewBotHandler yangi bot handler yaratish
func NewBotHandler(
	bot *tgbotapi.BotAPI,
	chatUseCase usecase.ChatUseCase,
	currencyUseCase usecase.CurrencyUseCase,
	catalogUseCase usecase.CatalogUseCase,
	transcriber repository.TranscriptionRepository,
	metrics repository.MetricsRecorder,
	requestTimeout time.Duration,
) *BotHandler {
	if requestTimeout <= 0 {
		requestTimeout = 20 * time.Second
	}
	return &BotHandler{
		bot:             bot,
		chatUseCase:     chatUseCase,
		currencyUseCase: currencyUseCase,
		catalogUseCase:  catalogUseCase,
		transcriber:     transcriber,
		metrics:         metrics,
		httpClient:      &http.Client{Timeout: requestTimeout},
		fileEndpoint:    tgbotapi.FileEndpoint,
		requestTimeout:  requestTimeout,
		queues:          make(map[int64][]*tgbotapi.Message),
		running:         make(map[int64]bool),
	}
}

// Start botni ishga tushirish
func (h *BotHandler) Start(ctx context.Context) error {
	log.Printf("Bot @%s ishga tushdi!", h.bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := h.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			log.Println("Bot to'xtatilmoqda...")
			h.bot.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			message := update.Message
			if message == nil {
				message = update.EditedMessage
			}
			if message == nil || message.Chat == nil {
				continue
			}
			h.dispatch(ctx, message)
		}
	}
}

// Wait navbatdagi xabarlar qayta ishlanishini kutish
func (h *BotHandler) Wait() {
	h.wg.Wait()
}

// dispatch chatlar mustaqil, bitta chat ichida tartib saqlanadi
func (h *BotHandler) dispatch(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	h.queueMu.Lock()
	h.queues[chatID] = append(h.queues[chatID], message)
	if h.running[chatID] {
		h.queueMu.Unlock()
		return
	}
	h.running[chatID] = true
	h.wg.Add(1)
	h.queueMu.Unlock()

	go h.drainQueue(ctx, chatID)
}

func (h *BotHandler) drainQueue(ctx context.Context, chatID int64) {
	defer h.wg.Done()
	for {
		h.queueMu.Lock()
		queue := h.queues[chatID]
		if len(queue) == 0 {
			delete(h.queues, chatID)
			delete(h.running, chatID)
			h.queueMu.Unlock()
			return
		}
		message := queue[0]
		h.queues[chatID] = queue[1:]
		h.queueMu.Unlock()

		h.handleMessage(ctx, message)
	}
}

// handleMessage xabarni qayta ishlash
func (h *BotHandler) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	reqID := uuid.NewString()[:8]
	if h.metrics != nil {
		h.metrics.RecordUpdate(chatID)
	}
	log.Printf("[%s] Chat %d: xabar %d qabul qilindi", reqID, chatID, message.MessageID)

	h.chatUseCase.Anchor(ctx, chatID, message.MessageID)

	text := strings.TrimSpace(message.Text)
	caption := strings.TrimSpace(message.Caption)

	// Komandalarni qayta ishlash
	if command, ok := commandOf(text, caption); ok {
		h.handleCommand(ctx, message, command)
		return
	}

	if text != "" && h.handleShortcut(ctx, message, text) {
		return
	}

	// Admin katalog fayli
	if message.Document != nil && isCatalogFile(message.Document) && h.catalogUseCase.IsAdmin(chatID) {
		h.handleCatalogUpload(ctx, message)
		return
	}

	switch {
	case message.Voice != nil:
		h.handleAudio(ctx, message, message.Voice.FileID, message.Voice.MimeType, int64(message.Voice.FileSize))
	case message.Audio != nil:
		h.handleAudio(ctx, message, message.Audio.FileID, message.Audio.MimeType, int64(message.Audio.FileSize))
	case len(message.Photo) > 0:
		photo := message.Photo[len(message.Photo)-1]
		h.handleImage(ctx, message, photo.FileID, "", int64(photo.FileSize))
	case message.Document != nil && strings.HasPrefix(message.Document.MimeType, "image/"):
		h.handleImage(ctx, message, message.Document.FileID, message.Document.MimeType, int64(message.Document.FileSize))
	case message.Document != nil:
		h.sendMessage(chatID, message.MessageID, unsupportedFile)
	case text != "":
		h.enqueueText(ctx, message, text)
	}
}

// commandOf "/cmd@bot args" -> "cmd"
func commandOf(text, caption string) (string, bool) {
	raw := text
	if raw == "" {
		raw = caption
	}
	if !strings.HasPrefix(raw, "/") {
		return "", false
	}
	first := strings.Fields(raw)[0]
	first = strings.TrimPrefix(first, "/")
	if at := strings.Index(first, "@"); at >= 0 {
		first = first[:at]
	}
	return strings.ToLower(first), true
}

// handleCommand komandalarni qayta ishlash
func (h *BotHandler) handleCommand(ctx context.Context, message *tgbotapi.Message, command string) {
	chatID := message.Chat.ID
	switch command {
	case "start":
		h.sendMessage(chatID, message.MessageID, welcomeText)
		h.sendMenu(chatID)
	case "help":
		h.sendMessage(chatID, message.MessageID, helpText)
	case "menu":
		h.sendMenu(chatID)
	case "cotacoes":
		h.sendRatesSnapshot(ctx, chatID, message.MessageID)
	case "reset":
		h.handleReset(ctx, message, resetText)
	case "sobre":
		h.sendMessage(chatID, message.MessageID, aboutText)
	case "catalog":
		h.handleCatalogCommand(ctx, message)
	default:
		h.sendMessage(chatID, message.MessageID, unknownCommand)
	}
}

// handleShortcut menyu tugmalari
func (h *BotHandler) handleShortcut(ctx context.Context, message *tgbotapi.Message, text string) bool {
	chatID := message.Chat.ID
	switch {
	case strings.EqualFold(text, shortcutHelp):
		h.sendMessage(chatID, message.MessageID, helpText)
	case strings.EqualFold(text, shortcutReset):
		h.handleReset(ctx, message, resetShortcut)
	case strings.EqualFold(text, shortcutChat):
		h.sendMessage(chatID, message.MessageID, chatShortcutText)
	case strings.EqualFold(text, shortcutRates):
		h.sendRatesSnapshot(ctx, chatID, message.MessageID)
	default:
		return false
	}
	return true
}

func (h *BotHandler) handleReset(ctx context.Context, message *tgbotapi.Message, reply string) {
	if err := h.chatUseCase.ClearHistory(ctx, message.Chat.ID); err != nil {
		log.Printf("Chat %d: tarixni tozalashda xatolik: %v", message.Chat.ID, err)
	}
	h.sendMessage(message.Chat.ID, message.MessageID, reply)
}

func (h *BotHandler) enqueueText(ctx context.Context, message *tgbotapi.Message, text string) {
	fragment, ok := usecase.NewTextFragment(text, time.Now())
	if !ok {
		return
	}
	h.enqueue(ctx, message, fragment)
}

func (h *BotHandler) enqueue(ctx context.Context, message *tgbotapi.Message, fragment entity.Fragment) {
	err := h.chatUseCase.Enqueue(ctx, message.Chat.ID, message.MessageID, fragment)
	if err == nil {
		return
	}
	log.Printf("Chat %d: bo'lakni navbatga qo'yib bo'lmadi: %v", message.Chat.ID, err)
	if errors.Is(err, usecase.ErrBufferClosed) {
		h.sendMessage(message.Chat.ID, message.MessageID, bufferBusy)
	}
}

// handleAudio ovozli xabar: yuklash, transkripsiya, caption + transkript navbatga
func (h *BotHandler) handleAudio(ctx context.Context, message *tgbotapi.Message, fileID, mimeType string, size int64) {
	chatID := message.Chat.ID
	if mimeType == "" {
		mimeType = defaultAudioMIME
	}

	transcript, err := h.transcribe(ctx, fileID, mimeType, size)
	if err != nil {
		log.Printf("Chat %d: audio qayta ishlashda xatolik: %v", chatID, err)
		if h.metrics != nil {
			h.metrics.RecordError("audio_processing")
		}
		h.sendMessage(chatID, message.MessageID, audioFailure)
		return
	}

	now := time.Now()
	if caption, ok := usecase.NewTextFragment(message.Caption, now); ok {
		h.enqueue(ctx, message, caption)
	}
	h.enqueue(ctx, message, usecase.NewAudioFragment(transcript, now))
}

func (h *BotHandler) transcribe(ctx context.Context, fileID, mimeType string, size int64) (string, error) {
	if size > maxMediaSize {
		return "", fmt.Errorf("audio too large: %d bytes", size)
	}
	data, err := h.downloadFile(ctx, fileID)
	if err != nil {
		return "", err
	}

	tctx, cancel := context.WithTimeout(ctx, 3*h.requestTimeout)
	defer cancel()

	start := time.Now()
	transcript, err := h.transcriber.Transcribe(tctx, data, mimeType)
	if h.metrics != nil {
		h.metrics.RecordTranscription(time.Since(start), err)
	}
	return transcript, err
}

// handleImage rasm: yuklash va navbatga qo'yish
func (h *BotHandler) handleImage(ctx context.Context, message *tgbotapi.Message, fileID, mimeType string, size int64) {
	chatID := message.Chat.ID
	if size > maxMediaSize {
		h.sendMessage(chatID, message.MessageID, imageFailure)
		return
	}

	data, err := h.downloadFile(ctx, fileID)
	if err != nil {
		log.Printf("Chat %d: rasmni yuklashda xatolik: %v", chatID, err)
		if h.metrics != nil {
			h.metrics.RecordError("image_processing")
		}
		h.sendMessage(chatID, message.MessageID, imageFailure)
		return
	}

	h.enqueue(ctx, message, usecase.NewImageFragment(data, mimeType, message.Caption, time.Now()))
}

// handleCatalogUpload admin Excel katalog yuklaganda
func (h *BotHandler) handleCatalogUpload(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	doc := message.Document

	// Fayl hajmini tekshirish (5MB)
	if doc.FileSize > maxCatalogSize {
		h.sendMessage(chatID, message.MessageID, "O arquivo deve ter no maximo 5MB.")
		return
	}

	fileBytes, err := h.downloadFile(ctx, doc.FileID)
	if err != nil {
		log.Printf("File download error: %v", err)
		h.sendMessage(chatID, message.MessageID, "Erro ao baixar o arquivo.")
		return
	}

	count, err := h.catalogUseCase.UploadCatalog(ctx, chatID, fileBytes, doc.FileName)
	if err != nil {
		log.Printf("Upload catalog error: %v", err)
		h.sendMessage(chatID, message.MessageID, fmt.Sprintf("Erro ao atualizar o catalogo: %v", err))
		return
	}

	h.sendMessage(chatID, message.MessageID, fmt.Sprintf(
		"Catalogo de moedas atualizado!\n\nApelidos carregados: %d\nArquivo: %s\n\n/catalog - detalhes do catalogo",
		count, doc.FileName))
}

// handleCatalogCommand katalog haqida ma'lumot (faqat admin)
func (h *BotHandler) handleCatalogCommand(ctx context.Context, message *tgbotapi.Message) {
	if !h.catalogUseCase.IsAdmin(message.Chat.ID) {
		h.sendMessage(message.Chat.ID, message.MessageID, adminOnly)
		return
	}
	if args := strings.Fields(message.Text); len(args) > 1 {
		h.handleCatalogArgs(ctx, message, args[1])
		return
	}
	info, err := h.catalogUseCase.GetCatalogInfo(ctx)
	if err != nil {
		log.Printf("Catalog info error: %v", err)
		h.sendMessage(message.Chat.ID, message.MessageID, "Erro ao ler o catalogo.")
		return
	}
	h.sendMessage(message.Chat.ID, message.MessageID, info)
}

// handleCatalogArgs "/catalog limpar" yoki "/catalog CHF"
func (h *BotHandler) handleCatalogArgs(ctx context.Context, message *tgbotapi.Message, arg string) {
	chatID := message.Chat.ID
	if strings.EqualFold(arg, "limpar") {
		if err := h.catalogUseCase.ResetCatalog(ctx, chatID); err != nil {
			log.Printf("Catalog reset error: %v", err)
			h.sendMessage(chatID, message.MessageID, "Erro ao limpar o catalogo.")
			return
		}
		h.sendMessage(chatID, message.MessageID, "Catalogo extra removido. Apenas os apelidos padrao continuam ativos.")
		return
	}

	code := strings.ToUpper(arg)
	aliases, err := h.catalogUseCase.AliasesFor(ctx, code)
	if err != nil || len(aliases) == 0 {
		h.sendMessage(chatID, message.MessageID, fmt.Sprintf("Nenhum apelido extra para %s.", code))
		return
	}
	h.sendMessage(chatID, message.MessageID, fmt.Sprintf("Apelidos de %s: %s", code, strings.Join(aliases, ", ")))
}

func (h *BotHandler) sendRatesSnapshot(ctx context.Context, chatID int64, replyTo int) {
	lines, err := h.currencyUseCase.Snapshot(ctx, usecase.DefaultSnapshotCodes)
	switch {
	case errors.Is(err, usecase.ErrNoQuotes):
		h.sendMessage(chatID, replyTo, ratesEmpty)
	case err != nil:
		log.Printf("Chat %d: kurslarni olishda xatolik: %v", chatID, err)
		h.sendMessage(chatID, replyTo, ratesFailure)
	default:
		h.sendMessage(chatID, replyTo, ratesHeader+strings.Join(lines, "\n"))
	}
}

func (h *BotHandler) sendMenu(chatID int64) {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(shortcutChat)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(shortcutRates)),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(shortcutHelp),
			tgbotapi.NewKeyboardButton(shortcutReset),
		),
	)
	keyboard.ResizeKeyboard = true

	msg := tgbotapi.NewMessage(chatID, menuText)
	msg.ReplyMarkup = keyboard
	if _, err := h.bot.Send(msg); err != nil {
		log.Printf("Xabar yuborishda xatolik: %v", err)
	}
}

// sendMessage oddiy xabar yuborish
func (h *BotHandler) sendMessage(chatID int64, replyTo int, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if replyTo != 0 {
		msg.ReplyToMessageID = replyTo
		msg.AllowSendingWithoutReply = true
	}
	if _, err := h.bot.Send(msg); err != nil {
		log.Printf("Xabar yuborishda xatolik: %v", err)
	}
}

// downloadFile Telegram dan faylni yuklash
func (h *BotHandler) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := h.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, err
	}
	if file.FilePath == "" {
		return nil, fmt.Errorf("telegram returned no file_path for %s", fileID)
	}

	fileURL := fmt.Sprintf(h.fileEndpoint, h.bot.Token, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file download status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxMediaSize+1))
}

func isCatalogFile(doc *tgbotapi.Document) bool {
	name := strings.ToLower(doc.FileName)
	return strings.HasSuffix(name, ".xlsx")
}
