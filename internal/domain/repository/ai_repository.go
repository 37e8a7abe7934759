package repository

import (
	"context"

	"github.com/yourusername/currency-relay-bot/internal/domain/entity"
)

// AIRepository AI bilan ishlash uchun interface
type AIRepository interface {
	// GenerateReply bounded history, konsolidatsiya qilingan turn va ixtiyoriy kontekst bilan javob yaratish
	GenerateReply(ctx context.Context, history []entity.Turn, turn entity.Consolidation, contextBlock string) (string, error)
}

// TranscriptionRepository audio transkripsiya uchun interface
type TranscriptionRepository interface {
	// Transcribe audio baytlarini matnga aylantirish
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}
