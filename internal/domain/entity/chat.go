package entity

import "time"

// Role suhbatdagi ishtirokchi
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn one entry of the bounded conversation history.
type Turn struct {
	ID        string
	Role      Role
	Content   string
	CreatedAt time.Time
}

// ChatSnapshot persisted part of a chat state.
type ChatSnapshot struct {
	ChatID        int64
	History       []Turn
	LastMessageID int
	UpdatedAt     time.Time
}

// Consolidation the result of draining one chat buffer.
type Consolidation struct {
	ChatID    int64
	Fragments []Fragment
	// Parts is the multimodal rendering sent to the model, in arrival order.
	Parts []TurnPart
	// Text is the text-only rendering used for detection and history.
	Text      string
	ReplyTo   int
	History   []Turn
	DrainedAt time.Time

	// Epoch is the chat's reset counter at drain time.
	Epoch uint64
}
