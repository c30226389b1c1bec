package domain

// ChatSender identifies who wrote a chat message.
type ChatSender string

const (
	// SenderUser is the reader.
	SenderUser ChatSender = "user"
	// SenderAI is the companion assistant.
	SenderAI ChatSender = "ai"
)

// ChatMessage is one turn in a companion conversation. Messages live only
// for the lifetime of the companion session and are never persisted.
type ChatMessage struct {
	ID     string     `json:"id"`
	Sender ChatSender `json:"sender"`
	Text   string     `json:"text"`
}
