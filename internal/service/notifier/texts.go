package notifier

import (
	"fmt"

	"github.com/christmas-fire/nexus-push/internal/models"
)

// Texts are the localized strings used to render a notification.
type Texts struct {
	Title       string
	Photo       string
	Voice       string
	Unsupported string
}

func DefaultTexts() Texts {
	return Texts{
		Title:       "메시지가 도착했습니다.",
		Photo:       "사진",
		Voice:       "음성메시지",
		Unsupported: "지원하지 않는 메시지",
	}
}

// Merge returns t with every non-empty field of override applied.
func (t Texts) Merge(override Texts) Texts {
	if override.Title != "" {
		t.Title = override.Title
	}
	if override.Photo != "" {
		t.Photo = override.Photo
	}
	if override.Voice != "" {
		t.Voice = override.Voice
	}
	if override.Unsupported != "" {
		t.Unsupported = override.Unsupported
	}
	return t
}

// Preview renders the part of the body that describes the message content.
func (t Texts) Preview(p models.Payload) string {
	switch v := p.(type) {
	case models.TextPayload:
		return v.Text
	case models.ImagePayload:
		return t.Photo
	case models.AudioPayload:
		return t.Voice
	default:
		return t.Unsupported
	}
}

func (t Texts) Body(sender models.Sender, p models.Payload) string {
	return fmt.Sprintf("%s: %s", sender.Name, t.Preview(p))
}
