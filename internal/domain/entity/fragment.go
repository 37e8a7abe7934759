package entity

import "time"

// FragmentKind bufferdagi bo'lak turi
type FragmentKind string

const (
	FragmentText  FragmentKind = "text"
	FragmentAudio FragmentKind = "audio"
	FragmentImage FragmentKind = "image"
)

// Fragment one normalized piece of user input waiting for consolidation.
type Fragment struct {
	Kind FragmentKind
	// Text holds the message text, the audio transcript or the image caption.
	Text string
	// ImageData is the base64 encoded image, only set for FragmentImage.
	ImageData  string
	MIMEType   string
	ReceivedAt time.Time
}

// TurnPart one rendered part of a consolidated user turn.
type TurnPart struct {
	Text     string
	Image    string // base64
	MIMEType string
}

// IsImage reports whether the part carries an inline image.
func (p TurnPart) IsImage() bool {
	return p.Image != ""
}
