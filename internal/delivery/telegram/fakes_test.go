package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/currency-relay-bot/internal/domain/entity"
)

const testToken = "123:test"

type apiCall struct {
	Method string
	Form   url.Values
}

// fakeTelegram minimal Bot API: getMe, sendMessage, sendChatAction, getFile va fayl yuklash.
type fakeTelegram struct {
	srv   *httptest.Server
	mu    sync.Mutex
	calls []apiCall
	files map[string][]byte // file_path -> content
}

func newFakeTelegram(t *testing.T) *fakeTelegram {
	t.Helper()
	f := &fakeTelegram{files: make(map[string][]byte)}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeTelegram) serve(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/file/") {
		filePath := strings.TrimPrefix(r.URL.Path, "/file/bot"+testToken+"/")
		f.mu.Lock()
		data, ok := f.files[filePath]
		f.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	method := path.Base(r.URL.Path)
	f.mu.Lock()
	f.calls = append(f.calls, apiCall{Method: method, Form: r.PostForm})
	f.mu.Unlock()

	var result interface{}
	switch method {
	case "getMe":
		result = map[string]interface{}{"id": 1, "is_bot": true, "first_name": "Relay", "username": "relay_bot"}
	case "sendMessage":
		chatID := r.PostForm.Get("chat_id")
		result = json.RawMessage(fmt.Sprintf(`{"message_id":1000,"date":0,"chat":{"id":%s,"type":"private"},"text":"ok"}`, chatID))
	case "getFile":
		fileID := r.PostForm.Get("file_id")
		result = map[string]interface{}{"file_id": fileID, "file_unique_id": fileID, "file_path": "files/" + fileID}
	default:
		result = true
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "result": result})
}

func (f *fakeTelegram) bot(t *testing.T) *tgbotapi.BotAPI {
	t.Helper()
	bot, err := tgbotapi.NewBotAPIWithClient(testToken, f.srv.URL+"/bot%s/%s", f.srv.Client())
	require.NoError(t, err)
	return bot
}

func (f *fakeTelegram) addFile(fileID string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files["files/"+fileID] = data
}

func (f *fakeTelegram) sent() []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.Method == "sendMessage" {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeTelegram) sentTexts() []string {
	var out []string
	for _, c := range f.sent() {
		out = append(out, c.Form.Get("text"))
	}
	return out
}

type enqueued struct {
	ChatID    int64
	MessageID int
	Fragment  entity.Fragment
}

type fakeChat struct {
	mu       sync.Mutex
	enqueued []enqueued
	anchors  []int
	cleared  []int64
	err      error
}

func (c *fakeChat) Enqueue(ctx context.Context, chatID int64, messageID int, fragment entity.Fragment) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.enqueued = append(c.enqueued, enqueued{ChatID: chatID, MessageID: messageID, Fragment: fragment})
	return nil
}

func (c *fakeChat) Anchor(ctx context.Context, chatID int64, messageID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.anchors = append(c.anchors, messageID)
}

func (c *fakeChat) ClearHistory(ctx context.Context, chatID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleared = append(c.cleared, chatID)
	return nil
}

func (c *fakeChat) GetHistory(ctx context.Context, chatID int64) ([]entity.Turn, error) {
	return nil, nil
}

func (c *fakeChat) HandleFlush(ctx context.Context, batch entity.Consolidation) {}

func (c *fakeChat) Close(ctx context.Context) error { return nil }

func (c *fakeChat) fragments() []enqueued {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]enqueued(nil), c.enqueued...)
}

type fakeCurrency struct {
	lines []string
	err   error
}

func (c *fakeCurrency) BuildContext(ctx context.Context, text string) string { return "" }

func (c *fakeCurrency) Snapshot(ctx context.Context, codes []string) ([]string, error) {
	return c.lines, c.err
}

type fakeCatalog struct {
	admins   map[int64]bool
	aliases  map[string][]string
	uploaded []string
	resets   int
}

func (c *fakeCatalog) LoadFile(ctx context.Context, path string) (int, error) { return 0, nil }

func (c *fakeCatalog) UploadCatalog(ctx context.Context, chatID int64, fileData []byte, filename string) (int, error) {
	if !c.admins[chatID] {
		return 0, entity.ErrNotAdmin
	}
	c.uploaded = append(c.uploaded, filename)
	return 3, nil
}

func (c *fakeCatalog) IsAdmin(chatID int64) bool { return c.admins[chatID] }

func (c *fakeCatalog) GetCatalogInfo(ctx context.Context) (string, error) {
	return "Moedas reconhecidas: USD, EUR", nil
}

func (c *fakeCatalog) AliasesFor(ctx context.Context, code string) ([]string, error) {
	aliases, ok := c.aliases[code]
	if !ok {
		return nil, errors.New("currency not found")
	}
	return aliases, nil
}

func (c *fakeCatalog) ResetCatalog(ctx context.Context, chatID int64) error {
	if !c.admins[chatID] {
		return entity.ErrNotAdmin
	}
	c.resets++
	return nil
}

type fakeTranscriber struct {
	mu     sync.Mutex
	text   string
	err    error
	inputs [][]byte
	mimes  []string
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, audio)
	f.mimes = append(f.mimes, mimeType)
	return f.text, f.err
}

type handlerFixture struct {
	api         *fakeTelegram
	handler     *BotHandler
	chat        *fakeChat
	currency    *fakeCurrency
	catalog     *fakeCatalog
	transcriber *fakeTranscriber
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	api := newFakeTelegram(t)
	fx := &handlerFixture{
		api:         api,
		chat:        &fakeChat{},
		currency:    &fakeCurrency{},
		catalog:     &fakeCatalog{admins: map[int64]bool{1: true}, aliases: map[string][]string{}},
		transcriber: &fakeTranscriber{},
	}
	fx.handler = NewBotHandler(api.bot(t), fx.chat, fx.currency, fx.catalog, fx.transcriber, nil, time.Second)
	fx.handler.fileEndpoint = api.srv.URL + "/file/bot%s/%s"
	return fx
}

func message(chatID int64, id int, text string) *tgbotapi.Message {
	return &tgbotapi.Message{MessageID: id, Chat: &tgbotapi.Chat{ID: chatID, Type: "private"}, Text: text}
}
