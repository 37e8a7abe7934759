package usecase

import (
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/yourusername/currency-relay-bot/internal/domain/entity"
)

const (
	// DefaultImagePrompt sent next to an image that arrived without a caption.
	DefaultImagePrompt = "Analise a imagem enviada e comente os pontos principais."
	// EmptyTranscriptText used when transcription returned nothing.
	EmptyTranscriptText = "Audio recebido, mas a transcricao veio vazia."

	audioLabel  = "[Audio do usuario]"
	imageMarker = "[Imagem enviada]"
)

// NewTextFragment matnli bo'lak. Bo'sh matn uchun false qaytaradi.
func NewTextFragment(text string, at time.Time) (entity.Fragment, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return entity.Fragment{}, false
	}
	return entity.Fragment{Kind: entity.FragmentText, Text: text, ReceivedAt: at}, true
}

// NewAudioFragment wraps an already transcribed audio.
func NewAudioFragment(transcript string, at time.Time) entity.Fragment {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		transcript = EmptyTranscriptText
	}
	return entity.Fragment{Kind: entity.FragmentAudio, Text: transcript, ReceivedAt: at}
}

// NewImageFragment encodes the image and sniffs its MIME type when undeclared.
func NewImageFragment(data []byte, mimeType, caption string, at time.Time) entity.Fragment {
	return entity.Fragment{
		Kind:       entity.FragmentImage,
		Text:       strings.TrimSpace(caption),
		ImageData:  base64.StdEncoding.EncodeToString(data),
		MIMEType:   guessImageMIME(mimeType, data),
		ReceivedAt: at,
	}
}

func guessImageMIME(declared string, data []byte) string {
	if declared = strings.TrimSpace(declared); declared != "" {
		return declared
	}
	detected := http.DetectContentType(data)
	if strings.HasPrefix(detected, "image/") {
		return detected
	}
	return "image/jpeg"
}

// RenderFragments consecutive text-like fragments are merged into one text part,
// images become their own part with the caption right before them.
func RenderFragments(fragments []entity.Fragment) []entity.TurnPart {
	var parts []entity.TurnPart
	var textBuf []string

	flush := func() {
		if len(textBuf) == 0 {
			return
		}
		parts = append(parts, entity.TurnPart{Text: strings.Join(textBuf, "\n")})
		textBuf = nil
	}

	for _, f := range fragments {
		switch f.Kind {
		case entity.FragmentText:
			textBuf = append(textBuf, f.Text)
		case entity.FragmentAudio:
			textBuf = append(textBuf, audioLabel+"\n"+f.Text)
		case entity.FragmentImage:
			caption := f.Text
			if caption == "" {
				caption = DefaultImagePrompt
			}
			textBuf = append(textBuf, caption)
			flush()
			parts = append(parts, entity.TurnPart{Image: f.ImageData, MIMEType: f.MIMEType})
		}
	}
	flush()

	return parts
}

// PlainText text-only rendering; images are replaced by a marker.
func PlainText(parts []entity.TurnPart) string {
	lines := make([]string, 0, len(parts))
	for _, p := range parts {
		if p.IsImage() {
			lines = append(lines, imageMarker)
			continue
		}
		lines = append(lines, p.Text)
	}
	return strings.Join(lines, "\n")
}
