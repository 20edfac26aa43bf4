package database

import (
	"database/sql"
	"fmt"
)

// TemplateStore handles database operations for message templates. The
// engine only reads templates; they are authored elsewhere.
type TemplateStore struct {
	db *sql.DB
}

func NewTemplateStore(db *sql.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

const templateColumns = `id, name, text, state_transition, language, attach_cv, created_at, updated_at`

func scanTemplate(row interface{ Scan(...any) error }) (*MessageTemplate, error) {
	var tmpl MessageTemplate
	var transition sql.NullString
	err := row.Scan(&tmpl.ID, &tmpl.Name, &tmpl.Text, &transition,
		&tmpl.Language, &tmpl.AttachCV, &tmpl.CreatedAt, &tmpl.UpdatedAt)
	if err != nil {
		return nil, err
	}
	tmpl.StateTransition = transition.String
	return &tmpl, nil
}

// ForTransition returns the template bound to a lifecycle transition, or nil
// when none is bound. The unique constraint on state_transition guarantees at
// most one.
func (s *TemplateStore) ForTransition(transition string) (*MessageTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM message_templates WHERE state_transition = ?`
	tmpl, err := scanTemplate(s.db.QueryRow(query, transition))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template for transition %s: %w", transition, err)
	}
	return tmpl, nil
}

// Create inserts a template. A second template for the same transition is
// rejected by the unique constraint.
func (s *TemplateStore) Create(tmpl *MessageTemplate) error {
	var transition any
	if tmpl.StateTransition != "" {
		transition = tmpl.StateTransition
	}

	result, err := s.db.Exec(`
		INSERT INTO message_templates (name, text, state_transition, language, attach_cv)
		VALUES (?, ?, ?, ?, ?)`,
		tmpl.Name, tmpl.Text, transition, tmpl.Language, tmpl.AttachCV)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get template id: %w", err)
	}
	tmpl.ID = int(id)
	return nil
}

// List returns all templates ordered by name.
func (s *TemplateStore) List() ([]MessageTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM message_templates ORDER BY name`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []MessageTemplate
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, *tmpl)
	}
	return templates, rows.Err()
}
