package model

import (
	"strings"
	"time"
)

// Email is an inbound message to classify and route. Bodies are plain text;
// HTML extraction happens at the provider boundary before the core sees the
// message.
type Email struct {
	ReceivedAt time.Time
	MessageID  string
	From       string
	To         string
	Subject    string
	Body       string
}

// SearchText returns the lowercased subject and body, the haystack used by
// name and keyword matching during routing.
func (e Email) SearchText() string {
	return strings.ToLower(e.Subject + " " + e.Body)
}
