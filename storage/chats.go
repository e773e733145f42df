package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"polychat/model"
)

const titleMaxLen = 50

// SaveChat persists a conversation and its messages in one transaction.
//
// A chat that has never been saved is inserted together with all of its
// messages, with the title derived from the first message. A known chat is
// reconciled against its stored rows: messages that disappeared are deleted,
// changed ones updated, new ones inserted. Saving unchanged input issues no
// writes beyond the transaction itself.
func (s *Store) SaveChat(chat model.Chat, messages []model.Message) (model.Chat, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return chat, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if chat.ID.IsNew() {
		chat, err = insertChat(tx, chat, messages)
	} else {
		err = reconcileMessages(tx, chat.ID, messages)
	}
	if err != nil {
		return chat, err
	}

	if err := tx.Commit(); err != nil {
		return chat, fmt.Errorf("failed to commit: %w", err)
	}
	return chat, nil
}

func insertChat(tx *sql.Tx, chat model.Chat, messages []model.Message) (model.Chat, error) {
	if len(messages) > 0 {
		chat.Title = truncateTitle(messages[0].Content)
	}

	res, err := tx.Exec(
		`INSERT INTO chats (title, enabled_providers, created_at) VALUES (?, ?, ?)`,
		chat.Title, model.JoinProviders(chat.EnabledProviders), chat.CreatedAt,
	)
	if err != nil {
		return chat, fmt.Errorf("failed to insert chat: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return chat, fmt.Errorf("failed to read chat id: %w", err)
	}
	chat.ID = model.ID(id)

	for _, m := range messages {
		m.ChatID = chat.ID
		if err := insertMessage(tx, m); err != nil {
			return chat, err
		}
	}
	return chat, nil
}

func reconcileMessages(tx *sql.Tx, chatID model.ID, messages []model.Message) error {
	stored, err := queryMessages(tx, chatID)
	if err != nil {
		return err
	}

	storedByID := make(map[model.ID]model.Message, len(stored))
	for _, m := range stored {
		storedByID[m.ID] = m
	}

	seen := make(map[model.ID]bool, len(messages))
	for _, m := range messages {
		m.ChatID = chatID

		if m.ID.IsNew() {
			if err := insertMessage(tx, m); err != nil {
				return err
			}
			continue
		}

		seen[m.ID] = true
		prev, ok := storedByID[m.ID]
		if !ok {
			if err := insertMessage(tx, m); err != nil {
				return err
			}
			continue
		}
		if prev != m {
			if err := updateMessage(tx, m); err != nil {
				return err
			}
		}
	}

	for id := range storedByID {
		if !seen[id] {
			if _, err := tx.Exec(`DELETE FROM messages WHERE message_id = ?`, int64(id)); err != nil {
				return fmt.Errorf("failed to delete message: %w", err)
			}
		}
	}
	return nil
}

func insertMessage(tx *sql.Tx, m model.Message) error {
	_, err := tx.Exec(
		`INSERT INTO messages (chat_id, content, image_data, linked_message_id, origin, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		int64(m.ChatID), m.Content, m.ImageData, int64(m.LinkedMessageID), string(m.Origin), m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func updateMessage(tx *sql.Tx, m model.Message) error {
	_, err := tx.Exec(
		`UPDATE messages SET content = ?, image_data = ?, linked_message_id = ?, origin = ?, created_at = ?
		 WHERE message_id = ?`,
		m.Content, m.ImageData, int64(m.LinkedMessageID), string(m.Origin), m.CreatedAt, int64(m.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	return nil
}

// Messages returns a chat's messages ordered by creation time.
func (s *Store) Messages(chatID model.ID) ([]model.Message, error) {
	return queryMessages(s.db, chatID)
}

type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

func queryMessages(q querier, chatID model.ID) ([]model.Message, error) {
	rows, err := q.Query(
		`SELECT message_id, chat_id, content, image_data, linked_message_id, origin, created_at
		 FROM messages WHERE chat_id = ? ORDER BY created_at, message_id`,
		int64(chatID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var m model.Message
		var id, chat, linked int64
		var origin string
		if err := rows.Scan(&id, &chat, &m.Content, &m.ImageData, &linked, &origin, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.ID = model.ID(id)
		m.ChatID = model.ID(chat)
		m.LinkedMessageID = model.ID(linked)
		m.Origin = model.ProviderType(origin)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// Chats lists every conversation, most recent first.
func (s *Store) Chats() ([]model.Chat, error) {
	rows, err := s.db.Query(
		`SELECT chat_id, title, enabled_providers, created_at FROM chats ORDER BY created_at DESC, chat_id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	defer rows.Close()

	var chats []model.Chat
	for rows.Next() {
		var c model.Chat
		var id int64
		var enabled string
		if err := rows.Scan(&id, &c.Title, &enabled, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		c.ID = model.ID(id)
		c.EnabledProviders, err = model.SplitProviders(enabled)
		if err != nil {
			return nil, fmt.Errorf("chat %d has invalid provider list: %w", id, err)
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// Chat loads one conversation by id.
func (s *Store) Chat(id model.ID) (model.Chat, error) {
	var c model.Chat
	var rowID int64
	var enabled string
	err := s.db.QueryRow(
		`SELECT chat_id, title, enabled_providers, created_at FROM chats WHERE chat_id = ?`,
		int64(id),
	).Scan(&rowID, &c.Title, &enabled, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return c, fmt.Errorf("chat %d not found", id)
	}
	if err != nil {
		return c, fmt.Errorf("failed to load chat: %w", err)
	}
	c.ID = model.ID(rowID)
	c.EnabledProviders, err = model.SplitProviders(enabled)
	if err != nil {
		return c, fmt.Errorf("chat %d has invalid provider list: %w", rowID, err)
	}
	return c, nil
}

// DeleteChats removes conversations in bulk; their messages cascade.
func (s *Store) DeleteChats(ids []model.ID) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = int64(id)
	}

	_, err := s.db.Exec(`DELETE FROM chats WHERE chat_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("failed to delete chats: %w", err)
	}
	return nil
}

// RenameChat updates a conversation's title.
func (s *Store) RenameChat(id model.ID, title string) error {
	_, err := s.db.Exec(
		`UPDATE chats SET title = ? WHERE chat_id = ?`,
		truncateTitle(title), int64(id),
	)
	if err != nil {
		return fmt.Errorf("failed to rename chat: %w", err)
	}
	return nil
}

func truncateTitle(s string) string {
	runes := []rune(s)
	if len(runes) > titleMaxLen {
		return string(runes[:titleMaxLen])
	}
	return s
}
