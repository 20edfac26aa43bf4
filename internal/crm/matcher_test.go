package crm

import (
	"testing"
	"time"

	"freeturn/internal/database"
	"freeturn/internal/email"
	"freeturn/internal/lifecycle"
)

func setupMatcher(t *testing.T) (*Matcher, *database.DB) {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewMatcher(db.Projects, db.Messages, db.Organizations, testLogger()), db
}

func matcherPerson(t *testing.T, db *database.DB, address string, orgID int) *database.Person {
	t.Helper()

	person, _, err := db.People.GetOrCreate(&database.Person{Email: address, OrganizationID: orgID})
	if err != nil {
		t.Fatalf("Failed to create person: %v", err)
	}
	return person
}

func TestMatchOrCreateNewProject(t *testing.T) {
	matcher, db := setupMatcher(t)

	rate := 600.0
	org, _, err := db.Organizations.GetOrCreate(&database.Organization{
		Name:             "Acme",
		URL:              "http://acme.com",
		Location:         "Berlin",
		DefaultDailyRate: &rate,
	})
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	person := matcherPerson(t, db, "jane@acme.com", org.ID)

	project, err := matcher.MatchOrCreate(&email.ParsedMessage{
		GmailThreadID: "t1",
		Subject:       "Need a contractor",
		Body:          "long description",
	}, person)
	if err != nil {
		t.Fatalf("MatchOrCreate failed: %v", err)
	}

	if project.Name != "Need a contractor" {
		t.Errorf("Expected project named after the subject, got %s", project.Name)
	}
	if project.State != lifecycle.InitialState {
		t.Errorf("Expected initial state, got %s", project.State)
	}
	if project.ManagerID != person.ID {
		t.Errorf("Expected sender as manager, got %d", project.ManagerID)
	}
	if project.OriginalDescription != "long description" {
		t.Errorf("Expected body as description, got %q", project.OriginalDescription)
	}
	// Location and rate are inherited from the organization.
	if project.Location != "Berlin" {
		t.Errorf("Expected inherited location, got %s", project.Location)
	}
	if project.DailyRate == nil || *project.DailyRate != rate {
		t.Errorf("Expected inherited daily rate, got %v", project.DailyRate)
	}
}

func TestMatchOrCreateThreadContinuity(t *testing.T) {
	matcher, db := setupMatcher(t)
	person := matcherPerson(t, db, "jane@acme.com", 0)

	first, err := matcher.MatchOrCreate(&email.ParsedMessage{
		GmailThreadID: "t1",
		Subject:       "Need a contractor",
	}, person)
	if err != nil {
		t.Fatalf("MatchOrCreate failed: %v", err)
	}

	if _, _, err := db.Messages.InsertIfNew(&database.ProjectMessage{
		GmailMessageID: "m1",
		GmailThreadID:  "t1",
		SentAt:         time.Now().UTC(),
		ProjectID:      first.ID,
		AuthorID:       person.ID,
	}); err != nil {
		t.Fatalf("InsertIfNew failed: %v", err)
	}

	// Another sender continues the thread under a different subject: the
	// thread binding wins over everything else.
	other := matcherPerson(t, db, "bob@globex.com", 0)
	matched, err := matcher.MatchOrCreate(&email.ParsedMessage{
		GmailThreadID: "t1",
		Subject:       "Re: completely renamed",
	}, other)
	if err != nil {
		t.Fatalf("MatchOrCreate failed: %v", err)
	}
	if matched.ID != first.ID {
		t.Errorf("Expected thread continuity to match project %d, got %d", first.ID, matched.ID)
	}
}

func TestMatchOrCreateFallsBackToLatestActiveProject(t *testing.T) {
	matcher, db := setupMatcher(t)
	person := matcherPerson(t, db, "jane@acme.com", 0)

	existing, err := matcher.MatchOrCreate(&email.ParsedMessage{
		GmailThreadID: "t1",
		Subject:       "Need a contractor",
	}, person)
	if err != nil {
		t.Fatalf("MatchOrCreate failed: %v", err)
	}

	// A brand-new thread from the same sender lands on their most recently
	// active project.
	matched, err := matcher.MatchOrCreate(&email.ParsedMessage{
		GmailThreadID: "t2",
		Subject:       "Another mail",
	}, person)
	if err != nil {
		t.Fatalf("MatchOrCreate failed: %v", err)
	}
	if matched.ID != existing.ID {
		t.Errorf("Expected fallback to project %d, got %d", existing.ID, matched.ID)
	}
}

func TestMatchOrCreateIgnoresStoppedProjects(t *testing.T) {
	matcher, db := setupMatcher(t)
	person := matcherPerson(t, db, "jane@acme.com", 0)

	stopped, err := matcher.MatchOrCreate(&email.ParsedMessage{
		GmailThreadID: "t1",
		Subject:       "Old project",
	}, person)
	if err != nil {
		t.Fatalf("MatchOrCreate failed: %v", err)
	}
	if err := db.Projects.UpdateState(stopped.ID, lifecycle.StateStopped); err != nil {
		t.Fatalf("UpdateState failed: %v", err)
	}

	fresh, err := matcher.MatchOrCreate(&email.ParsedMessage{
		GmailThreadID: "t2",
		Subject:       "New inquiry",
	}, person)
	if err != nil {
		t.Fatalf("MatchOrCreate failed: %v", err)
	}
	if fresh.ID == stopped.ID {
		t.Error("Expected a stopped project to never absorb new mail")
	}
	if fresh.Name != "New inquiry" {
		t.Errorf("Expected a fresh project, got %s", fresh.Name)
	}
}
