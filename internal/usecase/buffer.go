package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/currency-relay-bot/internal/domain/entity"
	"github.com/yourusername/currency-relay-bot/internal/domain/repository"
)

// ErrBufferClosed the buffer no longer accepts fragments.
var ErrBufferClosed = errors.New("conversation buffer closed")

// FlushHandler receives one consolidation per quiet period.
type FlushHandler func(ctx context.Context, batch entity.Consolidation)

type chatState struct {
	mu             sync.Mutex
	loaded         bool
	history        []entity.Turn
	pending        []entity.Fragment
	lastFragmentAt time.Time
	lastMessageID  int

	// epoch increments on every reset; consolidations drained earlier are stale
	epoch uint64

	// flushMu keeps drain+dispatch FIFO within one chat
	flushMu sync.Mutex
	saveMu  sync.Mutex
}

// ConversationBuffer per-chat pending fragments, history and flush timing.
// Every chat has its own lock; chats never contend with each other.
type ConversationBuffer struct {
	store      repository.ChatStateRepository
	maxHistory int
	scheduler  *FlushScheduler
	chats      sync.Map // int64 -> *chatState

	handlerMu sync.RWMutex
	handler   FlushHandler

	baseCtx  context.Context
	cancel   context.CancelFunc
	closeMu  sync.RWMutex
	closed   bool
	inflight sync.WaitGroup
}

// NewConversationBuffer yangi buffer yaratish
func NewConversationBuffer(store repository.ChatStateRepository, maxHistory int, quiet time.Duration) *ConversationBuffer {
	if maxHistory <= 0 {
		maxHistory = 10
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &ConversationBuffer{
		store:      store,
		maxHistory: maxHistory,
		baseCtx:    ctx,
		cancel:     cancel,
	}
	b.scheduler = NewFlushScheduler(quiet, b.fire)
	return b
}

// SetFlushHandler flush paytida chaqiriladigan handler
func (b *ConversationBuffer) SetFlushHandler(h FlushHandler) {
	b.handlerMu.Lock()
	defer b.handlerMu.Unlock()
	b.handler = h
}

// Scheduler exposes the debounce scheduler.
func (b *ConversationBuffer) Scheduler() *FlushScheduler {
	return b.scheduler
}

func (b *ConversationBuffer) state(chatID int64) *chatState {
	if v, ok := b.chats.Load(chatID); ok {
		return v.(*chatState)
	}
	v, _ := b.chats.LoadOrStore(chatID, &chatState{})
	return v.(*chatState)
}

// ensureLoaded must be called with st.mu held.
func (b *ConversationBuffer) ensureLoaded(ctx context.Context, chatID int64, st *chatState) {
	if st.loaded {
		return
	}
	st.loaded = true
	if b.store == nil {
		return
	}

	snapshot, err := b.store.Load(ctx, chatID)
	if err != nil {
		log.Printf("Chat %d holatini yuklab bo'lmadi: %v", chatID, err)
		return
	}
	if snapshot == nil {
		return
	}
	st.history = trimHistory(append(st.history, snapshot.History...), b.maxHistory)
	if st.lastMessageID == 0 {
		st.lastMessageID = snapshot.LastMessageID
	}
}

// Append queues a fragment and restarts the quiet-period countdown for the chat.
func (b *ConversationBuffer) Append(ctx context.Context, chatID int64, fragment entity.Fragment) error {
	if b.isClosed() {
		return ErrBufferClosed
	}
	if fragment.ReceivedAt.IsZero() {
		fragment.ReceivedAt = time.Now()
	}

	st := b.state(chatID)
	st.mu.Lock()
	defer st.mu.Unlock()

	b.ensureLoaded(ctx, chatID, st)
	st.pending = append(st.pending, fragment)
	st.lastFragmentAt = fragment.ReceivedAt
	b.scheduler.Arm(chatID)

	return nil
}

// SetReplyAnchor remembers the upstream message replies should be threaded to.
func (b *ConversationBuffer) SetReplyAnchor(ctx context.Context, chatID int64, messageID int) {
	st := b.state(chatID)
	st.mu.Lock()

	b.ensureLoaded(ctx, chatID, st)
	changed := st.lastMessageID != messageID
	st.lastMessageID = messageID
	st.mu.Unlock()

	if changed {
		if err := b.persist(ctx, chatID, st); err != nil {
			log.Printf("Chat %d: %v", chatID, err)
		}
	}
}

// Drain atomically takes every pending fragment. Returns entity.ErrEmptyBuffer
// when there is nothing to do.
func (b *ConversationBuffer) Drain(chatID int64) (entity.Consolidation, error) {
	st := b.state(chatID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if len(st.pending) == 0 {
		return entity.Consolidation{}, entity.ErrEmptyBuffer
	}

	fragments := st.pending
	st.pending = nil
	b.scheduler.Cancel(chatID)

	parts := RenderFragments(fragments)
	history := make([]entity.Turn, len(st.history))
	copy(history, st.history)

	return entity.Consolidation{
		ChatID:    chatID,
		Fragments: fragments,
		Parts:     parts,
		Text:      PlainText(parts),
		ReplyTo:   st.lastMessageID,
		History:   history,
		Epoch:     st.epoch,
		DrainedAt: time.Now(),
	}, nil
}

// Reset clears pending fragments and history and disarms the timer.
func (b *ConversationBuffer) Reset(ctx context.Context, chatID int64) error {
	st := b.state(chatID)
	st.mu.Lock()
	st.loaded = true
	st.pending = nil
	st.history = nil
	st.lastFragmentAt = time.Time{}
	st.lastMessageID = 0
	st.epoch++
	b.scheduler.Cancel(chatID)
	st.mu.Unlock()

	if b.store == nil {
		return nil
	}
	st.saveMu.Lock()
	defer st.saveMu.Unlock()
	if err := b.store.Delete(ctx, chatID); err != nil {
		return fmt.Errorf("failed to delete chat state: %w", err)
	}
	return nil
}

// AppendTurn adds a history entry, evicting the oldest ones beyond the bound.
func (b *ConversationBuffer) AppendTurn(ctx context.Context, chatID int64, role entity.Role, content string) error {
	st := b.state(chatID)
	st.mu.Lock()
	b.ensureLoaded(ctx, chatID, st)
	b.appendTurns(st, newTurn(role, content))
	st.mu.Unlock()

	return b.persist(ctx, chatID, st)
}

// AppendExchange records the user turn of batch and the model reply with one persist.
// A batch drained before the last reset is dropped and false is returned.
func (b *ConversationBuffer) AppendExchange(ctx context.Context, batch entity.Consolidation, reply string) (bool, error) {
	st := b.state(batch.ChatID)
	st.mu.Lock()
	b.ensureLoaded(ctx, batch.ChatID, st)
	if st.epoch != batch.Epoch {
		st.mu.Unlock()
		return false, nil
	}
	b.appendTurns(st, newTurn(entity.RoleUser, batch.Text), newTurn(entity.RoleAssistant, reply))
	st.mu.Unlock()

	return true, b.persist(ctx, batch.ChatID, st)
}

// appendTurns must be called with st.mu held.
func (b *ConversationBuffer) appendTurns(st *chatState, turns ...entity.Turn) {
	st.history = trimHistory(append(st.history, turns...), b.maxHistory)
}

func newTurn(role entity.Role, content string) entity.Turn {
	return entity.Turn{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// History bounded history nusxasi
func (b *ConversationBuffer) History(ctx context.Context, chatID int64) []entity.Turn {
	st := b.state(chatID)
	st.mu.Lock()
	defer st.mu.Unlock()

	b.ensureLoaded(ctx, chatID, st)
	out := make([]entity.Turn, len(st.history))
	copy(out, st.history)
	return out
}

// PendingCount number of fragments waiting for the chat.
func (b *ConversationBuffer) PendingCount(chatID int64) int {
	st := b.state(chatID)
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.pending)
}

func (b *ConversationBuffer) persist(ctx context.Context, chatID int64, st *chatState) error {
	if b.store == nil {
		return nil
	}
	st.saveMu.Lock()
	defer st.saveMu.Unlock()

	st.mu.Lock()
	snapshot := entity.ChatSnapshot{
		ChatID:        chatID,
		History:       append([]entity.Turn(nil), st.history...),
		LastMessageID: st.lastMessageID,
		UpdatedAt:     time.Now(),
	}
	st.mu.Unlock()

	if err := b.store.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to save chat state: %w", err)
	}
	return nil
}

func (b *ConversationBuffer) fire(chatID int64) {
	b.closeMu.RLock()
	if b.closed {
		b.closeMu.RUnlock()
		return
	}
	b.inflight.Add(1)
	b.closeMu.RUnlock()
	defer b.inflight.Done()

	st := b.state(chatID)
	st.flushMu.Lock()
	defer st.flushMu.Unlock()

	// a fragment arrived while we waited for the previous dispatch;
	// the newer countdown owns the batch now
	if b.scheduler.Armed(chatID) {
		return
	}

	batch, err := b.Drain(chatID)
	if errors.Is(err, entity.ErrEmptyBuffer) {
		// reset or an earlier flush already took everything
		return
	}

	b.handlerMu.RLock()
	h := b.handler
	b.handlerMu.RUnlock()
	if h == nil {
		log.Printf("Chat %d: flush handler yo'q, %d ta bo'lak tashlandi", chatID, len(batch.Fragments))
		return
	}
	h(b.baseCtx, batch)
}

func (b *ConversationBuffer) isClosed() bool {
	b.closeMu.RLock()
	defer b.closeMu.RUnlock()
	return b.closed
}

// Close stops accepting fragments, disarms all timers and waits for in-flight
// consolidations until ctx expires.
func (b *ConversationBuffer) Close(ctx context.Context) error {
	b.closeMu.Lock()
	b.closed = true
	b.closeMu.Unlock()

	b.scheduler.Stop()

	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.cancel()
		return nil
	case <-ctx.Done():
		b.cancel()
		return ctx.Err()
	}
}

func trimHistory(history []entity.Turn, max int) []entity.Turn {
	if len(history) > max {
		history = history[len(history)-max:]
	}
	return history
}
