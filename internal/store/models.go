package store

import "time"

type Chat struct {
	ID        string    `json:"id"` // Using UUID for external ID
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// FeatureCard is a home-screen shortcut card. The defaults are seeded
// at schema init and can be toggled off via the active flag.
type FeatureCard struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Active bool   `json:"active"`
}

type Message struct {
	ID        string    `json:"id"` // Using UUID for external ID
	ChatID    string    `json:"chat_id"`
	Content   string    `json:"content"`
	IsUser    bool      `json:"is_user"`
	Metadata  string    `json:"metadata,omitempty"` // Model info JSON for assistant messages
	CreatedAt time.Time `json:"created_at"`
}
