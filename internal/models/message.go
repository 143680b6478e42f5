package models

import "time"

// Sender is the snapshot of the author embedded in every message.
type Sender struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	Sender    Sender    `json:"user"`
	Payload   Payload   `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// Payload is the content of a message. Exactly one of the concrete
// payload types below is ever set.
type Payload interface {
	payload()
}

type TextPayload struct {
	Text string
}

type ImagePayload struct {
	URL string
}

type AudioPayload struct {
	URL string
}

// UnsupportedPayload is what a message carries when none of the known
// content fields were set.
type UnsupportedPayload struct{}

func (TextPayload) payload()        {}
func (ImagePayload) payload()       {}
func (AudioPayload) payload()       {}
func (UnsupportedPayload) payload() {}

// PayloadFromFields builds a Payload from the optional wire fields.
// Text wins over image, image wins over audio.
func PayloadFromFields(text, imageURL, audioURL *string) Payload {
	switch {
	case text != nil:
		return TextPayload{Text: *text}
	case imageURL != nil:
		return ImagePayload{URL: *imageURL}
	case audioURL != nil:
		return AudioPayload{URL: *audioURL}
	default:
		return UnsupportedPayload{}
	}
}

// Fields is the inverse of PayloadFromFields.
func Fields(p Payload) (text, imageURL, audioURL *string) {
	switch v := p.(type) {
	case TextPayload:
		return &v.Text, nil, nil
	case ImagePayload:
		return nil, &v.URL, nil
	case AudioPayload:
		return nil, nil, &v.URL
	default:
		return nil, nil, nil
	}
}
