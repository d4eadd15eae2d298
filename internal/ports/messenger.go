package ports

import "github.com/larriantoniy/dl_slot_bot/internal/domain"

// Messenger is the chat platform boundary.
// Implemented by the TDLib adapter; faked in tests.
type Messenger interface {
	// Listen returns the stream of incoming private messages.
	Listen() (<-chan domain.Message, error)
	SendMessage(chatID int64, text string) error
	// SendPhoto delivers an image (captcha) with a caption.
	SendPhoto(chatID int64, caption string, image []byte) error
	Close()
}
