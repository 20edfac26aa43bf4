package database

import (
	"database/sql"
	"fmt"
)

// OrganizationStore handles database operations for organizations
type OrganizationStore struct {
	db *sql.DB
}

func NewOrganizationStore(db *sql.DB) *OrganizationStore {
	return &OrganizationStore{db: db}
}

const organizationColumns = `id, name, url, location, notes, default_daily_rate, created_at, updated_at`

func scanOrganization(row interface{ Scan(...any) error }) (*Organization, error) {
	var org Organization
	err := row.Scan(&org.ID, &org.Name, &org.URL, &org.Location, &org.Notes,
		&org.DefaultDailyRate, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// GetByID returns an organization by id.
func (s *OrganizationStore) GetByID(id int) (*Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE id = ?`
	org, err := scanOrganization(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization %d: %w", id, err)
	}
	return org, nil
}

// FindByURLContains returns the first organization whose URL contains the
// given fragment, typically an email domain.
func (s *OrganizationStore) FindByURLContains(fragment string) (*Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations
			  WHERE url != '' AND instr(lower(url), lower(?)) > 0
			  ORDER BY id LIMIT 1`
	org, err := scanOrganization(s.db.QueryRow(query, fragment))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find organization by url: %w", err)
	}
	return org, nil
}

// GetOrCreate inserts the organization unless one with the same name already
// exists, and returns the stored row either way. The unique constraint on
// name turns a concurrent duplicate insert into a no-op.
func (s *OrganizationStore) GetOrCreate(org *Organization) (*Organization, bool, error) {
	result, err := s.db.Exec(`
		INSERT INTO organizations (name, url, location, notes, default_daily_rate)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING`,
		org.Name, org.URL, org.Location, org.Notes, org.DefaultDailyRate)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert organization: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE name = ?`
	stored, err := scanOrganization(s.db.QueryRow(query, org.Name))
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch organization %q: %w", org.Name, err)
	}

	return stored, affected > 0, nil
}

// List returns all organizations ordered by name.
func (s *OrganizationStore) List() ([]Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations ORDER BY name`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, *org)
	}
	return orgs, rows.Err()
}
