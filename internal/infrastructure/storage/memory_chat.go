package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yourusername/currency-relay-bot/internal/domain/entity"
	"github.com/yourusername/currency-relay-bot/internal/domain/repository"
)

type memoryChatRepository struct {
	mu      sync.RWMutex
	states  map[int64]entity.ChatSnapshot
	maxSize int
}

// NewMemoryChatRepository in-memory chat state repository yaratish
func NewMemoryChatRepository(maxHistory int) repository.ChatStateRepository {
	return &memoryChatRepository{
		states:  make(map[int64]entity.ChatSnapshot),
		maxSize: maxHistory,
	}
}

// Load chat holatini olish
func (m *memoryChatRepository) Load(ctx context.Context, chatID int64) (*entity.ChatSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot, exists := m.states[chatID]
	if !exists {
		return nil, nil
	}

	out := snapshot
	out.History = append([]entity.Turn(nil), snapshot.History...)
	return &out, nil
}

// Save chat holatini saqlash
func (m *memoryChatRepository) Save(ctx context.Context, snapshot entity.ChatSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := append([]entity.Turn(nil), snapshot.History...)
	// Maksimal hajmni nazorat qilish
	if m.maxSize > 0 && len(history) > m.maxSize {
		history = history[len(history)-m.maxSize:]
	}
	snapshot.History = history
	if snapshot.UpdatedAt.IsZero() {
		snapshot.UpdatedAt = time.Now()
	}

	m.states[snapshot.ChatID] = snapshot
	return nil
}

// Delete chat holatini o'chirish
func (m *memoryChatRepository) Delete(ctx context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.states, chatID)
	return nil
}

// ListChatIDs saqlangan chatlar
func (m *memoryChatRepository) ListChatIDs(ctx context.Context) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]int64, 0, len(m.states))
	for id := range m.states {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
