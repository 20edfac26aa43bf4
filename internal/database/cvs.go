package database

import (
	"database/sql"
	"fmt"
)

// CVStore handles database operations for generated CVs.
type CVStore struct {
	db *sql.DB
}

func NewCVStore(db *sql.DB) *CVStore {
	return &CVStore{db: db}
}

const cvColumns = `id, project_id, full_name, title, experience_overview,
	education_overview, contact_details, languages_overview, rate_overview,
	working_permit, earliest_available, document, created_at`

func scanCV(row interface{ Scan(...any) error }) (*CV, error) {
	var cv CV
	err := row.Scan(&cv.ID, &cv.ProjectID, &cv.FullName, &cv.Title,
		&cv.ExperienceOverview, &cv.EducationOverview, &cv.ContactDetails,
		&cv.LanguagesOverview, &cv.RateOverview, &cv.WorkingPermit,
		&cv.EarliestAvailable, &cv.Document, &cv.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &cv, nil
}

// Create inserts a CV row.
func (s *CVStore) Create(cv *CV) error {
	result, err := s.db.Exec(`
		INSERT INTO cvs (project_id, full_name, title, experience_overview,
			education_overview, contact_details, languages_overview,
			rate_overview, working_permit, earliest_available, document)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cv.ProjectID, cv.FullName, cv.Title, cv.ExperienceOverview,
		cv.EducationOverview, cv.ContactDetails, cv.LanguagesOverview,
		cv.RateOverview, cv.WorkingPermit, cv.EarliestAvailable, cv.Document)
	if err != nil {
		return fmt.Errorf("failed to create CV: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get CV id: %w", err)
	}
	cv.ID = int(id)
	return nil
}

// LatestForProject returns the most recent CV for a project, or nil.
func (s *CVStore) LatestForProject(projectID int) (*CV, error) {
	query := `SELECT ` + cvColumns + ` FROM cvs WHERE project_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`
	cv, err := scanCV(s.db.QueryRow(query, projectID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest CV for project %d: %w", projectID, err)
	}
	return cv, nil
}

// ExistsForProject reports whether a project has any CV on record.
func (s *CVStore) ExistsForProject(projectID int) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM cvs WHERE project_id = ?`, projectID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count CVs for project %d: %w", projectID, err)
	}
	return count > 0, nil
}
