package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/yourusername/currency-relay-bot/internal/domain/entity"
)

type fakeStore struct {
	mu        sync.Mutex
	snapshots map[int64]entity.ChatSnapshot
	saves     int
	deletes   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{snapshots: make(map[int64]entity.ChatSnapshot)}
}

func (s *fakeStore) Load(ctx context.Context, chatID int64) (*entity.ChatSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[chatID]
	if !ok {
		return nil, nil
	}
	snap.History = append([]entity.Turn(nil), snap.History...)
	return &snap, nil
}

func (s *fakeStore) Save(ctx context.Context, snapshot entity.ChatSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	s.snapshots[snapshot.ChatID] = snapshot
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	delete(s.snapshots, chatID)
	return nil
}

func (s *fakeStore) ListChatIDs(ctx context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.snapshots))
	for id := range s.snapshots {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *fakeStore) snapshot(chatID int64) (entity.ChatSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[chatID]
	return snap, ok
}

type batchRecorder struct {
	mu      sync.Mutex
	batches []entity.Consolidation
}

func (r *batchRecorder) handle(ctx context.Context, batch entity.Consolidation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, batch)
}

func (r *batchRecorder) all() []entity.Consolidation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.Consolidation(nil), r.batches...)
}

func (r *batchRecorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

type fakeSender struct {
	mu      sync.Mutex
	typing  int
	replies []sentReply
}

type sentReply struct {
	chatID  int64
	replyTo int
	text    string
}

func (s *fakeSender) SendTyping(ctx context.Context, chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typing++
}

func (s *fakeSender) SendReply(ctx context.Context, chatID int64, replyTo int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, sentReply{chatID: chatID, replyTo: replyTo, text: text})
	return nil
}

func (s *fakeSender) sent() []sentReply {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentReply(nil), s.replies...)
}

type aiCall struct {
	history      []entity.Turn
	turn         entity.Consolidation
	contextBlock string
}

type fakeAI struct {
	mu    sync.Mutex
	reply string
	err   error
	calls []aiCall
	// gate, agar berilgan bo'lsa, javobni yopilguncha ushlab turadi
	gate chan struct{}
}

func (a *fakeAI) GenerateReply(ctx context.Context, history []entity.Turn, turn entity.Consolidation, contextBlock string) (string, error) {
	a.mu.Lock()
	a.calls = append(a.calls, aiCall{history: history, turn: turn, contextBlock: contextBlock})
	reply, err, gate := a.reply, a.err, a.gate
	a.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return reply, err
}

func (a *fakeAI) recorded() []aiCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]aiCall(nil), a.calls...)
}

type fakeMetrics struct {
	mu      sync.Mutex
	lookups map[string]int
	errors  map[string]int
	flushes int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{lookups: make(map[string]int), errors: make(map[string]int)}
}

func (m *fakeMetrics) RecordUpdate(chatID int64)                      {}
func (m *fakeMetrics) RecordModelCall(d time.Duration, err error)     {}
func (m *fakeMetrics) RecordTranscription(d time.Duration, err error) {}

func (m *fakeMetrics) RecordFlush() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushes++
}

func (m *fakeMetrics) RecordRateLookup(kind, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups[kind+"/"+result]++
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *fakeMetrics) errorCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

func (m *fakeMetrics) lookupCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookups[key]
}

func textFragment(s string) entity.Fragment {
	f, _ := NewTextFragment(s, time.Now())
	return f
}
