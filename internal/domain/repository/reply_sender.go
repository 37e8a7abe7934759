package repository

import "context"

// ReplySender transport tomoniga javob yuborish
type ReplySender interface {
	// SendTyping "typing" indikatorini ko'rsatish
	SendTyping(ctx context.Context, chatID int64)

	// SendReply replyTo is the upstream message the answer is threaded to, 0 for none.
	SendReply(ctx context.Context, chatID int64, replyTo int, text string) error
}
