package database

import (
	"database/sql"
	"fmt"
)

// ProjectStore handles database operations for projects
type ProjectStore struct {
	db *sql.DB
}

func NewProjectStore(db *sql.DB) *ProjectStore {
	return &ProjectStore{db: db}
}

const projectColumns = `id, name, state, organization_id, manager_id, location,
	original_description, notes, daily_rate, language, start_date, end_date,
	created_at, updated_at`

func scanProject(row interface{ Scan(...any) error }) (*Project, error) {
	var project Project
	var orgID, managerID sql.NullInt64
	err := row.Scan(&project.ID, &project.Name, &project.State, &orgID, &managerID,
		&project.Location, &project.OriginalDescription, &project.Notes,
		&project.DailyRate, &project.Language, &project.StartDate, &project.EndDate,
		&project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		return nil, err
	}
	project.OrganizationID = int(orgID.Int64)
	project.ManagerID = int(managerID.Int64)
	return &project, nil
}

// GetByID returns a project by id, or nil when it does not exist.
func (s *ProjectStore) GetByID(id int) (*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = ?`
	project, err := scanProject(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project %d: %w", id, err)
	}
	return project, nil
}

// Create inserts a new project and fills in the generated id and timestamps.
func (s *ProjectStore) Create(project *Project) error {
	if project.State == "" {
		project.State = "requested"
	}
	if project.Language == "" {
		project.Language = "en"
	}

	result, err := s.db.Exec(`
		INSERT INTO projects (name, state, organization_id, manager_id, location,
			original_description, notes, daily_rate, language, start_date, end_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		project.Name, project.State, nullableID(project.OrganizationID),
		nullableID(project.ManagerID), project.Location, project.OriginalDescription,
		project.Notes, project.DailyRate, project.Language, project.StartDate, project.EndDate)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get project id: %w", err)
	}

	stored, err := s.GetByID(int(id))
	if err != nil {
		return err
	}
	*project = *stored
	return nil
}

// LatestActiveForManager returns the most recently modified non-stopped
// project managed by the given person, or nil when there is none. Stopped
// projects never absorb new mail.
func (s *ProjectStore) LatestActiveForManager(managerID int, terminalState string) (*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects
			  WHERE manager_id = ? AND state != ?
			  ORDER BY updated_at DESC, id DESC LIMIT 1`
	project, err := scanProject(s.db.QueryRow(query, managerID, terminalState))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active project for manager %d: %w", managerID, err)
	}
	return project, nil
}

// UpdateState moves a project into a new lifecycle state and bumps its
// modification time.
func (s *ProjectStore) UpdateState(id int, state string) error {
	result, err := s.db.Exec(`
		UPDATE projects SET state = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		state, id)
	if err != nil {
		return fmt.Errorf("failed to update project state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("project %d not found", id)
	}
	return nil
}

// List returns all projects, most recently modified first.
func (s *ProjectStore) List() ([]Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects ORDER BY updated_at DESC, id DESC`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *project)
	}
	return projects, rows.Err()
}

// ListByState returns projects in one lifecycle state, most recent first.
func (s *ProjectStore) ListByState(state string) ([]Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE state = ? ORDER BY updated_at DESC, id DESC`
	rows, err := s.db.Query(query, state)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects by state: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *project)
	}
	return projects, rows.Err()
}
