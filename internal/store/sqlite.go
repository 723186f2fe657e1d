package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS chats (
        id TEXT PRIMARY KEY, -- UUID
        title TEXT NOT NULL DEFAULT '新对话',
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS messages (
        id TEXT PRIMARY KEY, -- UUID
        chat_id TEXT NOT NULL,
        content TEXT NOT NULL,
        is_user BOOLEAN NOT NULL DEFAULT TRUE,
        metadata TEXT, -- model info JSON for assistant messages
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (chat_id) REFERENCES chats (id)
    );

    CREATE TABLE IF NOT EXISTS feature_cards (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        title TEXT NOT NULL,
        active BOOLEAN NOT NULL DEFAULT TRUE
    );
    `
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return s.seedFeatureCards()
}

// seedFeatureCards inserts the default cards once, on first start.
func (s *SQLiteStore) seedFeatureCards() error {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM feature_cards").Scan(&count); err != nil {
		return fmt.Errorf("failed to count feature cards: %w", err)
	}
	if count > 0 {
		return nil
	}

	defaults := []string{
		"Extract insights from report",
		"Polish your prose",
		"Generate interview questions",
	}
	for _, title := range defaults {
		if _, err := s.db.Exec("INSERT INTO feature_cards (title) VALUES (?)", title); err != nil {
			return fmt.Errorf("failed to seed feature card: %w", err)
		}
	}
	return nil
}

// Chat methods

func (s *SQLiteStore) CreateChat(title string) (*Chat, error) {
	if title == "" {
		title = "新对话"
	}
	chatID := uuid.NewString()
	now := time.Now()

	_, err := s.db.Exec("INSERT INTO chats (id, title, created_at) VALUES (?, ?, ?)", chatID, title, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert chat: %w", err)
	}
	return &Chat{ID: chatID, Title: title, CreatedAt: now}, nil
}

func (s *SQLiteStore) GetChatByID(chatID string) (*Chat, error) {
	var chat Chat
	err := s.db.QueryRow("SELECT id, title, created_at FROM chats WHERE id = ?", chatID).
		Scan(&chat.ID, &chat.Title, &chat.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	return &chat, nil
}

func (s *SQLiteStore) GetChats() ([]Chat, error) {
	rows, err := s.db.Query("SELECT id, title, created_at FROM chats ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	defer rows.Close()

	var chats []Chat
	for rows.Next() {
		var chat Chat
		if err := rows.Scan(&chat.ID, &chat.Title, &chat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat row: %w", err)
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

func (s *SQLiteStore) UpdateChatTitle(chatID string, title string) error {
	res, err := s.db.Exec("UPDATE chats SET title = ? WHERE id = ?", title, chatID)
	if err != nil {
		return fmt.Errorf("failed to update chat title: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("chat not found, title not updated")
	}
	return nil
}

// Feature card methods

func (s *SQLiteStore) GetFeatureCards() ([]FeatureCard, error) {
	rows, err := s.db.Query("SELECT id, title, active FROM feature_cards WHERE active = TRUE ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query feature cards: %w", err)
	}
	defer rows.Close()

	var cards []FeatureCard
	for rows.Next() {
		var card FeatureCard
		if err := rows.Scan(&card.ID, &card.Title, &card.Active); err != nil {
			return nil, fmt.Errorf("failed to scan feature card row: %w", err)
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

// Message methods

func (s *SQLiteStore) CreateMessage(msg *Message) error {
	msg.ID = uuid.NewString()
	msg.CreatedAt = time.Now()

	var metadata sql.NullString
	if msg.Metadata != "" {
		metadata = sql.NullString{String: msg.Metadata, Valid: true}
	}

	_, err := s.db.Exec(
		"INSERT INTO messages (id, chat_id, content, is_user, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		msg.ID, msg.ChatID, msg.Content, msg.IsUser, metadata, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetMessagesByChatID(chatID string) ([]Message, error) {
	rows, err := s.db.Query(
		"SELECT id, chat_id, content, is_user, metadata, created_at FROM messages WHERE chat_id = ? ORDER BY created_at ASC",
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		var metadata sql.NullString
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.Content, &msg.IsUser, &metadata, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		if metadata.Valid {
			msg.Metadata = metadata.String
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
