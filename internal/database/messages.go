package database

import (
	"database/sql"
	"fmt"
)

// MessageStore handles database operations for project messages. It owns the
// "already processed" check: gmail_message_id is unique, so a message is
// stored at most once no matter how often the provider re-lists it.
type MessageStore struct {
	db *sql.DB
}

func NewMessageStore(db *sql.DB) *MessageStore {
	return &MessageStore{db: db}
}

const messageColumns = `id, gmail_message_id, gmail_thread_id, subject, sender,
	body, sent_at, project_id, author_id, created_at`

func scanMessage(row interface{ Scan(...any) error }) (*ProjectMessage, error) {
	var msg ProjectMessage
	var projectID sql.NullInt64
	err := row.Scan(&msg.ID, &msg.GmailMessageID, &msg.GmailThreadID, &msg.Subject,
		&msg.Sender, &msg.Body, &msg.SentAt, &projectID, &msg.AuthorID, &msg.CreatedAt)
	if err != nil {
		return nil, err
	}
	msg.ProjectID = int(projectID.Int64)
	return &msg, nil
}

// GetByGmailMessageID returns the stored message with the given provider id,
// or nil when the message has not been processed yet.
func (s *MessageStore) GetByGmailMessageID(gmailMessageID string) (*ProjectMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM project_messages WHERE gmail_message_id = ?`
	msg, err := scanMessage(s.db.QueryRow(query, gmailMessageID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", gmailMessageID, err)
	}
	return msg, nil
}

// InsertIfNew persists the message unless its provider id is already known.
// It returns the stored row and whether this call created it. Safe to call
// repeatedly for the same inbound message under at-least-once delivery.
func (s *MessageStore) InsertIfNew(msg *ProjectMessage) (*ProjectMessage, bool, error) {
	result, err := s.db.Exec(`
		INSERT INTO project_messages (gmail_message_id, gmail_thread_id, subject,
			sender, body, sent_at, project_id, author_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(gmail_message_id) DO NOTHING`,
		msg.GmailMessageID, msg.GmailThreadID, msg.Subject, msg.Sender,
		msg.Body, msg.SentAt, nullableID(msg.ProjectID), msg.AuthorID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert message: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	stored, err := s.GetByGmailMessageID(msg.GmailMessageID)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, fmt.Errorf("message %s missing after upsert", msg.GmailMessageID)
	}

	return stored, affected > 0, nil
}

// ProjectIDForThread returns the project bound to the given provider thread
// id, if any message of that thread has been stored.
func (s *MessageStore) ProjectIDForThread(gmailThreadID string) (int, bool, error) {
	var projectID sql.NullInt64
	query := `SELECT project_id FROM project_messages
			  WHERE gmail_thread_id = ? AND project_id IS NOT NULL
			  ORDER BY id LIMIT 1`
	err := s.db.QueryRow(query, gmailThreadID).Scan(&projectID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up thread %s: %w", gmailThreadID, err)
	}
	return int(projectID.Int64), projectID.Valid, nil
}

// ListByProject returns all messages of one project in arrival order.
func (s *MessageStore) ListByProject(projectID int) ([]ProjectMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM project_messages WHERE project_id = ? ORDER BY sent_at, id`
	rows, err := s.db.Query(query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []ProjectMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}

// LatestForProject returns the most recent message of one project, used to
// thread outbound replies, or nil when the project has no messages.
func (s *MessageStore) LatestForProject(projectID int) (*ProjectMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM project_messages
			  WHERE project_id = ? ORDER BY sent_at DESC, id DESC LIMIT 1`
	msg, err := scanMessage(s.db.QueryRow(query, projectID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest message for project %d: %w", projectID, err)
	}
	return msg, nil
}
