package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/currency-relay-bot/internal/domain/entity"
)

type stubCurrency struct {
	block string
	texts []string
}

func (s *stubCurrency) BuildContext(ctx context.Context, text string) string {
	s.texts = append(s.texts, text)
	return s.block
}

func (s *stubCurrency) Snapshot(ctx context.Context, codes []string) ([]string, error) {
	return nil, ErrNoQuotes
}

type chatFixture struct {
	uc       ChatUseCase
	buffer   *ConversationBuffer
	ai       *fakeAI
	sender   *fakeSender
	currency *stubCurrency
	metrics  *fakeMetrics
}

func newChatFixture(t *testing.T, ai *fakeAI) *chatFixture {
	t.Helper()
	f := &chatFixture{
		buffer:   NewConversationBuffer(newFakeStore(), 10, testQuiet),
		ai:       ai,
		sender:   &fakeSender{},
		currency: &stubCurrency{block: "[Contexto em tempo real]\n- USD/BRL: R$ 5.1000"},
		metrics:  newFakeMetrics(),
	}
	f.uc = NewChatUseCase(ai, f.buffer, f.currency, f.sender, f.metrics, time.Second)
	t.Cleanup(func() { _ = f.uc.Close(context.Background()) })
	return f
}

func TestChatFlushSuccess(t *testing.T) {
	f := newChatFixture(t, &fakeAI{reply: "  O dolar esta em R$ 5,10.  "})
	ctx := context.Background()

	require.NoError(t, f.uc.Enqueue(ctx, 1, 10, textFragment("hello")))
	require.NoError(t, f.uc.Enqueue(ctx, 1, 11, NewAudioFragment("quanto esta o dolar?", time.Now())))

	require.Eventually(t, func() bool { return len(f.sender.sent()) == 1 }, time.Second, 5*time.Millisecond)

	calls := f.ai.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, f.currency.block, calls[0].contextBlock)
	assert.Equal(t, "hello\n[Audio do usuario]\nquanto esta o dolar?", calls[0].turn.Text)
	assert.Empty(t, calls[0].history)

	reply := f.sender.sent()[0]
	assert.Equal(t, int64(1), reply.chatID)
	assert.Equal(t, 11, reply.replyTo)
	assert.Equal(t, "O dolar esta em R$ 5,10.", reply.text)

	history, err := f.uc.GetHistory(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, entity.RoleUser, history[0].Role)
	assert.Equal(t, "hello\n[Audio do usuario]\nquanto esta o dolar?", history[0].Content)
	assert.Equal(t, entity.RoleAssistant, history[1].Role)
	assert.Equal(t, 1, f.metrics.flushes)
}

func TestChatFlushFailureSendsApologyWithoutRefill(t *testing.T) {
	f := newChatFixture(t, &fakeAI{err: errors.New("backend unavailable")})
	ctx := context.Background()

	require.NoError(t, f.uc.Enqueue(ctx, 2, 20, textFragment("oi")))
	require.Eventually(t, func() bool { return len(f.sender.sent()) == 1 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, ModelFailureReply, f.sender.sent()[0].text)
	assert.Equal(t, 20, f.sender.sent()[0].replyTo)
	assert.Equal(t, 0, f.buffer.PendingCount(2), "failed fragments are not put back")

	history, _ := f.uc.GetHistory(ctx, 2)
	assert.Empty(t, history)

	time.Sleep(3 * testQuiet)
	assert.Len(t, f.ai.recorded(), 1, "no retry")
}

func TestChatFlushQuotaApology(t *testing.T) {
	f := newChatFixture(t, &fakeAI{err: errors.New("googleapi: Error 429: Resource has been exhausted (e.g. check quota).")})

	require.NoError(t, f.uc.Enqueue(context.Background(), 3, 30, textFragment("oi")))
	require.Eventually(t, func() bool { return len(f.sender.sent()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, QuotaFailureReply, f.sender.sent()[0].text)
}

func TestChatFlushEmptyReply(t *testing.T) {
	f := newChatFixture(t, &fakeAI{reply: "   "})

	require.NoError(t, f.uc.Enqueue(context.Background(), 4, 40, textFragment("oi")))
	require.Eventually(t, func() bool { return len(f.sender.sent()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, ModelFailureReply, f.sender.sent()[0].text)
}

func TestChatHistoryFeedsNextTurn(t *testing.T) {
	f := newChatFixture(t, &fakeAI{reply: "ok"})
	ctx := context.Background()

	require.NoError(t, f.uc.Enqueue(ctx, 5, 50, textFragment("primeira")))
	require.Eventually(t, func() bool { return len(f.sender.sent()) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, f.uc.Enqueue(ctx, 5, 51, textFragment("segunda")))
	require.Eventually(t, func() bool { return len(f.sender.sent()) == 2 }, time.Second, 5*time.Millisecond)

	calls := f.ai.recorded()
	require.Len(t, calls, 2)
	require.Len(t, calls[1].history, 2)
	assert.Equal(t, "primeira", calls[1].history[0].Content)
	assert.Equal(t, "ok", calls[1].history[1].Content)
}

func TestChatClearHistory(t *testing.T) {
	f := newChatFixture(t, &fakeAI{reply: "ok"})
	ctx := context.Background()

	require.NoError(t, f.uc.Enqueue(ctx, 6, 60, textFragment("oi")))
	require.Eventually(t, func() bool { return len(f.sender.sent()) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, f.uc.ClearHistory(ctx, 6))
	history, _ := f.uc.GetHistory(ctx, 6)
	assert.Empty(t, history)
}

func TestChatClearHistoryWhileReplyPending(t *testing.T) {
	ai := &fakeAI{reply: "ok", gate: make(chan struct{})}
	f := newChatFixture(t, ai)
	ctx := context.Background()

	require.NoError(t, f.uc.Enqueue(ctx, 7, 70, textFragment("qual o dolar?")))
	require.Eventually(t, func() bool { return len(ai.recorded()) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, f.uc.ClearHistory(ctx, 7))
	close(ai.gate)
	require.Eventually(t, func() bool { return len(f.sender.sent()) == 1 }, time.Second, 5*time.Millisecond)

	history, err := f.uc.GetHistory(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, history)
}
