package models

import "time"

// Message is one turn in a group conversation.
type Message struct {
	Speaker string    `json:"speaker"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
	// Failed marks a turn whose reply errored; Content holds the error text.
	Failed bool `json:"failed,omitempty"`
}
