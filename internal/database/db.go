package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the sql.DB connection and provides access to stores
type DB struct {
	*sql.DB
	Organizations *OrganizationStore
	People        *PersonStore
	Projects      *ProjectStore
	Messages      *MessageStore
	Templates     *TemplateStore
	CVs           *CVStore
}

// Open opens a database connection, runs migrations and initializes stores.
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single writer keeps sqlite consistent under concurrent sync runs and
	// makes :memory: databases behave in tests.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 30000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	database := &DB{
		DB:            db,
		Organizations: NewOrganizationStore(db),
		People:        NewPersonStore(db),
		Projects:      NewProjectStore(db),
		Messages:      NewMessageStore(db),
		Templates:     NewTemplateStore(db),
		CVs:           NewCVStore(db),
	}

	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return database, nil
}

// migrate creates the database schema
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS organizations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		url TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		default_daily_rate REAL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS people (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE COLLATE NOCASE,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		telephone TEXT NOT NULL DEFAULT '',
		organization_id INTEGER REFERENCES organizations(id) ON DELETE SET NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS projects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		state TEXT NOT NULL DEFAULT 'requested',
		organization_id INTEGER REFERENCES organizations(id) ON DELETE SET NULL,
		manager_id INTEGER REFERENCES people(id) ON DELETE SET NULL,
		location TEXT NOT NULL DEFAULT '',
		original_description TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		daily_rate REAL,
		language TEXT NOT NULL DEFAULT 'en',
		start_date DATETIME,
		end_date DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS project_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		gmail_message_id TEXT NOT NULL UNIQUE,
		gmail_thread_id TEXT NOT NULL,
		subject TEXT NOT NULL DEFAULT '',
		sender TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL DEFAULT '',
		sent_at DATETIME NOT NULL,
		project_id INTEGER REFERENCES projects(id) ON DELETE SET NULL,
		author_id INTEGER NOT NULL REFERENCES people(id) ON DELETE CASCADE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS message_templates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		text TEXT NOT NULL,
		state_transition TEXT UNIQUE,
		language TEXT NOT NULL DEFAULT 'en',
		attach_cv BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS cvs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		full_name TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		experience_overview TEXT NOT NULL DEFAULT '',
		education_overview TEXT NOT NULL DEFAULT '',
		contact_details TEXT NOT NULL DEFAULT '',
		languages_overview TEXT NOT NULL DEFAULT '',
		rate_overview TEXT NOT NULL DEFAULT '',
		working_permit TEXT NOT NULL DEFAULT '',
		earliest_available DATETIME,
		document BLOB,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_people_organization ON people(organization_id);
	CREATE INDEX IF NOT EXISTS idx_projects_manager_state ON projects(manager_id, state);
	CREATE INDEX IF NOT EXISTS idx_projects_updated ON projects(updated_at);
	CREATE INDEX IF NOT EXISTS idx_messages_thread ON project_messages(gmail_thread_id);
	CREATE INDEX IF NOT EXISTS idx_messages_project ON project_messages(project_id);
	CREATE INDEX IF NOT EXISTS idx_cvs_project ON cvs(project_id);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// IsHealthy checks if the database connection is healthy
func (db *DB) IsHealthy() error {
	return db.Ping()
}
