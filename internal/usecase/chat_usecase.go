package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/yourusername/currency-relay-bot/internal/domain/entity"
	"github.com/yourusername/currency-relay-bot/internal/domain/repository"
)

// ModelFailureReply apology sent when the model call fails.
const ModelFailureReply = "Tive um problema para falar com a IA agora. " +
	"Tente novamente em instantes ou envie a mensagem mais tarde."

// QuotaFailureReply apology sent when the model provider throttles us.
const QuotaFailureReply = "O servico de IA esta temporariamente limitado. " +
	"Tente novamente em cerca de 30 segundos."

// ChatUseCase chat bilan bog'liq business logic
type ChatUseCase interface {
	// Enqueue buffers a fragment; the reply is produced after the quiet period.
	Enqueue(ctx context.Context, chatID int64, messageID int, fragment entity.Fragment) error

	// Anchor reply uchun oxirgi xabarni eslab qolish
	Anchor(ctx context.Context, chatID int64, messageID int)

	// ClearHistory tarix va kutilayotgan bo'laklarni tozalash
	ClearHistory(ctx context.Context, chatID int64) error

	// GetHistory foydalanuvchi tarixini olish
	GetHistory(ctx context.Context, chatID int64) ([]entity.Turn, error)

	// HandleFlush consolidation callback invoked once per quiet period.
	HandleFlush(ctx context.Context, batch entity.Consolidation)

	// Close stops timers and waits for in-flight consolidations.
	Close(ctx context.Context) error
}

type chatUseCase struct {
	aiRepo       repository.AIRepository
	buffer       *ConversationBuffer
	currency     CurrencyUseCase
	sender       repository.ReplySender
	metrics      repository.MetricsRecorder
	modelTimeout time.Duration
}

// NewChatUseCase yangi ChatUseCase yaratish va buffer flush handlerini ulash
func NewChatUseCase(
	aiRepo repository.AIRepository,
	buffer *ConversationBuffer,
	currency CurrencyUseCase,
	sender repository.ReplySender,
	metrics repository.MetricsRecorder,
	modelTimeout time.Duration,
) ChatUseCase {
	if modelTimeout <= 0 {
		modelTimeout = 60 * time.Second
	}
	u := &chatUseCase{
		aiRepo:       aiRepo,
		buffer:       buffer,
		currency:     currency,
		sender:       sender,
		metrics:      metrics,
		modelTimeout: modelTimeout,
	}
	buffer.SetFlushHandler(u.HandleFlush)
	return u
}

// Enqueue bo'lakni bufferga qo'shish
func (u *chatUseCase) Enqueue(ctx context.Context, chatID int64, messageID int, fragment entity.Fragment) error {
	if messageID != 0 {
		u.buffer.SetReplyAnchor(ctx, chatID, messageID)
	}
	if err := u.buffer.Append(ctx, chatID, fragment); err != nil {
		return fmt.Errorf("failed to buffer fragment: %w", err)
	}
	return nil
}

// Anchor reply uchun oxirgi xabarni eslab qolish
func (u *chatUseCase) Anchor(ctx context.Context, chatID int64, messageID int) {
	u.buffer.SetReplyAnchor(ctx, chatID, messageID)
}

// HandleFlush drained fragments -> currency context -> model -> reply.
// The drained fragments are never put back: a failed consolidation is final.
func (u *chatUseCase) HandleFlush(ctx context.Context, batch entity.Consolidation) {
	if u.metrics != nil {
		u.metrics.RecordFlush()
	}

	contextBlock := u.currency.BuildContext(ctx, batch.Text)

	u.sender.SendTyping(ctx, batch.ChatID)

	modelCtx, cancel := context.WithTimeout(ctx, u.modelTimeout)
	defer cancel()

	start := time.Now()
	reply, err := u.aiRepo.GenerateReply(modelCtx, batch.History, batch, contextBlock)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = fmt.Errorf("empty model reply")
	}
	if u.metrics != nil {
		u.metrics.RecordModelCall(time.Since(start), err)
	}
	if err != nil {
		log.Printf("Chat %d: AI javobida xatolik: %v", batch.ChatID, err)
		if u.metrics != nil {
			u.metrics.RecordError("model_call")
		}
		apology := ModelFailureReply
		if isQuotaError(err) {
			apology = QuotaFailureReply
		}
		if sendErr := u.sender.SendReply(ctx, batch.ChatID, batch.ReplyTo, apology); sendErr != nil {
			log.Printf("Chat %d: uzr xabarini yuborib bo'lmadi: %v", batch.ChatID, sendErr)
		}
		return
	}
	reply = strings.TrimSpace(reply)

	// Tarixga original matn saqlanadi, kontekst bloki emas
	kept, err := u.buffer.AppendExchange(ctx, batch, reply)
	if err != nil {
		log.Printf("Chat %d: tarixni saqlashda xatolik: %v", batch.ChatID, err)
	} else if !kept {
		log.Printf("Chat %d: suhbat tozalangan, javob tarixga yozilmadi", batch.ChatID)
	}

	if err := u.sender.SendReply(ctx, batch.ChatID, batch.ReplyTo, reply); err != nil {
		log.Printf("Chat %d: javobni yuborib bo'lmadi: %v", batch.ChatID, err)
		if u.metrics != nil {
			u.metrics.RecordError("send_reply")
		}
	}
}

// ClearHistory foydalanuvchi tarixini tozalash
func (u *chatUseCase) ClearHistory(ctx context.Context, chatID int64) error {
	return u.buffer.Reset(ctx, chatID)
}

// GetHistory foydalanuvchi tarixini olish
func (u *chatUseCase) GetHistory(ctx context.Context, chatID int64) ([]entity.Turn, error) {
	return u.buffer.History(ctx, chatID), nil
}

// Close buffer ni yopish
func (u *chatUseCase) Close(ctx context.Context) error {
	return u.buffer.Close(ctx)
}

func isQuotaError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "quota") || strings.Contains(msg, "retry in") || strings.Contains(msg, "rate limit")
}
