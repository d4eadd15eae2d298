package domain

// Message is an incoming private chat message carrying either a command
// or a reply to a pending prompt.
type Message struct {
	ChatID int64
	UserID int64
	Text   string
}
