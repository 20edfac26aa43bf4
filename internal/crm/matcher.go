package crm

import (
	"log/slog"

	"freeturn/internal/database"
	"freeturn/internal/email"
	"freeturn/internal/lifecycle"
)

// Matcher finds or creates the project an inbound message belongs to.
// Thread continuity is the strongest signal: any stored message with the
// same provider thread id pins the conversation to its project. Failing
// that, the sender's most recently active non-stopped project absorbs the
// message; only then is a fresh project created.
type Matcher struct {
	projects *database.ProjectStore
	messages *database.MessageStore
	orgs     *database.OrganizationStore
	logger   *slog.Logger
}

// NewMatcher creates a project matcher over the given stores.
func NewMatcher(projects *database.ProjectStore, messages *database.MessageStore, orgs *database.OrganizationStore, logger *slog.Logger) *Matcher {
	return &Matcher{projects: projects, messages: messages, orgs: orgs, logger: logger}
}

// MatchOrCreate resolves the project for a message authored by person.
func (m *Matcher) MatchOrCreate(parsed *email.ParsedMessage, person *database.Person) (*database.Project, error) {
	projectID, found, err := m.messages.ProjectIDForThread(parsed.GmailThreadID)
	if err != nil {
		return nil, err
	}
	if found {
		project, err := m.projects.GetByID(projectID)
		if err != nil {
			return nil, err
		}
		if project != nil {
			return project, nil
		}
		// The thread's project was deleted; fall through to the heuristics.
	}

	project, err := m.projects.LatestActiveForManager(person.ID, lifecycle.StateStopped)
	if err != nil {
		return nil, err
	}
	if project != nil {
		return project, nil
	}

	return m.createProject(parsed, person)
}

// createProject opens a new project from the first message of a fresh
// conversation. Location and daily rate are inherited from the sender's
// organization.
func (m *Matcher) createProject(parsed *email.ParsedMessage, person *database.Person) (*database.Project, error) {
	project := &database.Project{
		Name:                parsed.Subject,
		State:               lifecycle.InitialState,
		ManagerID:           person.ID,
		OrganizationID:      person.OrganizationID,
		OriginalDescription: parsed.Body,
	}

	if person.OrganizationID != 0 {
		org, err := m.orgs.GetByID(person.OrganizationID)
		if err != nil {
			return nil, err
		}
		if org != nil {
			project.Location = org.Location
			project.DailyRate = org.DefaultDailyRate
		}
	}

	if err := m.projects.Create(project); err != nil {
		return nil, err
	}

	m.logger.Info("Created project", "name", project.Name, "manager_id", person.ID)
	return project, nil
}
