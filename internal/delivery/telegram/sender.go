package telegram

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxMessageRunes Telegram xabar uzunligi chegarasi
const maxMessageRunes = 4096

// Sender javoblarni Telegramga yuboradi
type Sender struct {
	bot *tgbotapi.BotAPI
}

// NewSender yangi Sender
func NewSender(bot *tgbotapi.BotAPI) *Sender {
	return &Sender{bot: bot}
}

// SendTyping "typing" indikatori
func (s *Sender) SendTyping(ctx context.Context, chatID int64) {
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	if _, err := s.bot.Request(action); err != nil {
		log.Printf("Chat %d: typing yuborib bo'lmadi: %v", chatID, err)
	}
}

// SendReply uzun javob bo'laklarga bo'linadi, faqat birinchisi reply sifatida
func (s *Sender) SendReply(ctx context.Context, chatID int64, replyTo int, text string) error {
	for i, chunk := range splitMessage(text, maxMessageRunes) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(chatID, chunk)
		if i == 0 && replyTo != 0 {
			msg.ReplyToMessageID = replyTo
			msg.AllowSendingWithoutReply = true
		}
		if _, err := s.bot.Send(msg); err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}
	}
	return nil
}

// splitMessage prefers line breaks, falls back to a hard cut.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		if idx := strings.LastIndex(string(runes[:limit]), "\n"); idx > 0 {
			cut = utf8.RuneCountInString(string(runes[:limit])[:idx])
		}
		chunk := strings.TrimRight(string(runes[:cut]), "\n")
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		runes = []rune(strings.TrimLeft(string(runes[cut:]), "\n"))
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
