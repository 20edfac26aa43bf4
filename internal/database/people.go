package database

import (
	"database/sql"
	"fmt"
)

// PersonStore handles database operations for people
type PersonStore struct {
	db *sql.DB
}

func NewPersonStore(db *sql.DB) *PersonStore {
	return &PersonStore{db: db}
}

const personColumns = `id, email, first_name, last_name, telephone, organization_id, created_at, updated_at`

func scanPerson(row interface{ Scan(...any) error }) (*Person, error) {
	var person Person
	var orgID sql.NullInt64
	err := row.Scan(&person.ID, &person.Email, &person.FirstName, &person.LastName,
		&person.Telephone, &orgID, &person.CreatedAt, &person.UpdatedAt)
	if err != nil {
		return nil, err
	}
	person.OrganizationID = int(orgID.Int64)
	return &person, nil
}

// GetByEmail returns the person with the given email, matched
// case-insensitively, or nil when no such person exists.
func (s *PersonStore) GetByEmail(email string) (*Person, error) {
	query := `SELECT ` + personColumns + ` FROM people WHERE email = ? COLLATE NOCASE`
	person, err := scanPerson(s.db.QueryRow(query, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person by email: %w", err)
	}
	return person, nil
}

// GetByID returns a person by id.
func (s *PersonStore) GetByID(id int) (*Person, error) {
	query := `SELECT ` + personColumns + ` FROM people WHERE id = ?`
	person, err := scanPerson(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person %d: %w", id, err)
	}
	return person, nil
}

// GetOrCreate inserts the person keyed on email and returns the stored row.
// An existing person is returned unchanged: names are never overwritten from
// a newer message. The unique constraint on email keeps concurrent duplicate
// processing of the same sender safe.
func (s *PersonStore) GetOrCreate(person *Person) (*Person, bool, error) {
	result, err := s.db.Exec(`
		INSERT INTO people (email, first_name, last_name, telephone, organization_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(email) DO NOTHING`,
		person.Email, person.FirstName, person.LastName, person.Telephone, nullableID(person.OrganizationID))
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert person: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	stored, err := s.GetByEmail(person.Email)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, fmt.Errorf("person %q missing after upsert", person.Email)
	}

	return stored, affected > 0, nil
}

// List returns all people ordered by creation time, newest first.
func (s *PersonStore) List() ([]Person, error) {
	query := `SELECT ` + personColumns + ` FROM people ORDER BY created_at DESC`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	defer rows.Close()

	var people []Person
	for rows.Next() {
		person, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		people = append(people, *person)
	}
	return people, rows.Err()
}

// nullableID maps the zero id to NULL for optional foreign keys.
func nullableID(id int) any {
	if id == 0 {
		return nil
	}
	return id
}
