package domain

// Button is an inline action attached to a message
type Button struct {
	Label   string
	Payload string
}

// Message is a transport-neutral outbound chat message
type Message struct {
	ChatID         int64
	Text           string
	Inline         [][]Button // Buttons attached to the message itself
	Keyboard       [][]string // Reply keyboard shown under the input field
	RemoveKeyboard bool
	Markdown       bool
}

// WithChat returns a copy of the message addressed to chatID
func (m Message) WithChat(chatID int64) Message {
	m.ChatID = chatID
	return m
}

// Text builds a plain message with no keyboard
func Text(chatID int64, text string) Message {
	return Message{ChatID: chatID, Text: text}
}
