package usecase

import (
	"sync"
	"time"
)

// FlushScheduler per-chat debounce. Each chat has at most one armed countdown,
// measured from the last Arm call.
type FlushScheduler struct {
	quiet time.Duration
	fire  func(chatID int64)
	slots sync.Map // int64 -> *flushSlot
}

type flushSlot struct {
	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// NewFlushScheduler yangi scheduler yaratish
func NewFlushScheduler(quiet time.Duration, fire func(chatID int64)) *FlushScheduler {
	return &FlushScheduler{quiet: quiet, fire: fire}
}

// Quiet configured quiet period.
func (s *FlushScheduler) Quiet() time.Duration {
	return s.quiet
}

func (s *FlushScheduler) slot(chatID int64) *flushSlot {
	if v, ok := s.slots.Load(chatID); ok {
		return v.(*flushSlot)
	}
	v, _ := s.slots.LoadOrStore(chatID, &flushSlot{})
	return v.(*flushSlot)
}

// Arm (re)starts the countdown for chatID, superseding any pending one.
func (s *FlushScheduler) Arm(chatID int64) {
	sl := s.slot(chatID)
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.timer != nil {
		sl.timer.Stop()
	}
	sl.gen++
	gen := sl.gen
	sl.timer = time.AfterFunc(s.quiet, func() {
		sl.mu.Lock()
		// superseded or cancelled after the timer already fired
		if sl.gen != gen {
			sl.mu.Unlock()
			return
		}
		sl.timer = nil
		sl.mu.Unlock()

		s.fire(chatID)
	})
}

// Cancel disarms the countdown for chatID if any.
func (s *FlushScheduler) Cancel(chatID int64) {
	v, ok := s.slots.Load(chatID)
	if !ok {
		return
	}
	sl := v.(*flushSlot)
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.timer != nil {
		sl.timer.Stop()
		sl.timer = nil
	}
	sl.gen++
}

// Armed reports whether a countdown is pending for chatID.
func (s *FlushScheduler) Armed(chatID int64) bool {
	v, ok := s.slots.Load(chatID)
	if !ok {
		return false
	}
	sl := v.(*flushSlot)
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.timer != nil
}

// Stop cancels every pending countdown.
func (s *FlushScheduler) Stop() {
	s.slots.Range(func(key, _ any) bool {
		s.Cancel(key.(int64))
		return true
	})
}
