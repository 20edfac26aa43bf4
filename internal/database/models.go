package database

import (
	"time"
)

// Organization is a client or recruiting company. Name is the natural key;
// the URL domain is what inbound sender addresses are matched against.
type Organization struct {
	ID               int      `json:"id"`
	Name             string   `json:"name"`
	URL              string   `json:"url"`
	Location         string   `json:"location"`
	Notes            string   `json:"notes"`
	DefaultDailyRate *float64 `json:"default_daily_rate,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Person is a human counterpart, usually a recruiter or project manager.
// Email is unique case-insensitively and is the key used during resolution.
type Person struct {
	ID             int    `json:"id"`
	Email          string `json:"email"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Telephone      string `json:"telephone,omitempty"`
	OrganizationID int    `json:"organization_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName joins first and last name for display and outbound addressing.
func (p *Person) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	return p.FirstName + " " + p.LastName
}

// Project is one sales or delivery opportunity moving through the lifecycle.
// UpdatedAt doubles as the recency signal for fallback thread matching.
type Project struct {
	ID                  int        `json:"id"`
	Name                string     `json:"name"`
	State               string     `json:"state"`
	OrganizationID      int        `json:"organization_id,omitempty"`
	ManagerID           int        `json:"manager_id,omitempty"`
	Location            string     `json:"location"`
	OriginalDescription string     `json:"original_description"`
	Notes               string     `json:"notes"`
	DailyRate           *float64   `json:"daily_rate,omitempty"`
	Language            string     `json:"language"`
	StartDate           *time.Time `json:"start_date,omitempty"`
	EndDate             *time.Time `json:"end_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProjectMessage is one normalized inbound message. GmailMessageID is the
// dedup key; rows are immutable once written.
type ProjectMessage struct {
	ID             int       `json:"id"`
	GmailMessageID string    `json:"gmail_message_id"`
	GmailThreadID  string    `json:"gmail_thread_id"`
	Subject        string    `json:"subject"`
	Sender         string    `json:"sender"`
	Body           string    `json:"body"`
	SentAt         time.Time `json:"sent_at"`
	ProjectID      int       `json:"project_id,omitempty"`
	AuthorID       int       `json:"author_id"`

	CreatedAt time.Time `json:"created_at"`
}

// MessageTemplate is a reusable outbound text template, optionally bound to
// exactly one lifecycle transition.
type MessageTemplate struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	Text            string `json:"text"`
	StateTransition string `json:"state_transition,omitempty"`
	Language        string `json:"language"`
	AttachCV        bool   `json:"attach_cv"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CV is a generated curriculum vitae tailored to one project. Document holds
// the rendered artifact when a renderer is configured.
type CV struct {
	ID                 int        `json:"id"`
	ProjectID          int        `json:"project_id"`
	FullName           string     `json:"full_name"`
	Title              string     `json:"title"`
	ExperienceOverview string     `json:"experience_overview"`
	EducationOverview  string     `json:"education_overview"`
	ContactDetails     string     `json:"contact_details"`
	LanguagesOverview  string     `json:"languages_overview"`
	RateOverview       string     `json:"rate_overview"`
	WorkingPermit      string     `json:"working_permit"`
	EarliestAvailable  *time.Time `json:"earliest_available,omitempty"`
	Document           []byte     `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}
