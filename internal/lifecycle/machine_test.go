package lifecycle

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"freeturn/internal/compose"
	"freeturn/internal/database"
	"freeturn/internal/email"
)

// fakeSender records outbound messages and optionally fails.
type fakeSender struct {
	sent []*email.OutboundMessage
	err  error
}

func (f *fakeSender) Send(msg *email.OutboundMessage) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return fmt.Sprintf("sent-%d", len(f.sent)), nil
}

type engineFixture struct {
	db      *database.DB
	engine  *Engine
	sender  *fakeSender
	manager *database.Person
	project *database.Project
}

func setupEngine(t *testing.T) *engineFixture {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sender := &fakeSender{}
	composer := compose.NewComposer(db.CVs, logger)
	engine := NewEngine(db, composer, sender, "me@example.com", logger)

	manager, _, err := db.People.GetOrCreate(&database.Person{
		Email:     "jane@acme.com",
		FirstName: "Jane",
		LastName:  "Doe",
	})
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	project := &database.Project{Name: "Need a contractor", ManagerID: manager.ID}
	if err := db.Projects.Create(project); err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}

	return &engineFixture{db: db, engine: engine, sender: sender, manager: manager, project: project}
}

func (f *engineFixture) currentState(t *testing.T) string {
	t.Helper()
	project, err := f.db.Projects.GetByID(f.project.ID)
	if err != nil || project == nil {
		t.Fatalf("Failed to reload project: %v", err)
	}
	return project.State
}

func TestApplyTransition(t *testing.T) {
	f := setupEngine(t)

	result, err := f.engine.Apply(f.project.ID, "scope")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if result.Project.State != StateScoped {
		t.Errorf("Expected scoped, got %s", result.Project.State)
	}
	if f.currentState(t) != StateScoped {
		t.Error("Expected the state change to be persisted")
	}
	// No template bound: nothing to dispatch, no warning.
	if result.Dispatched || result.DispatchWarning != nil {
		t.Errorf("Expected quiet transition, got %+v", result)
	}
}

func TestApplyIllegalTransition(t *testing.T) {
	f := setupEngine(t)

	_, err := f.engine.Apply(f.project.ID, "sign")
	if err == nil {
		t.Fatal("Expected sign from requested to be rejected")
	}

	var illegal *IllegalTransitionError
	if !errors.As(err, &illegal) {
		t.Fatalf("Expected *IllegalTransitionError, got %T", err)
	}
	if illegal.State != StateRequested {
		t.Errorf("Expected error to carry the current state, got %s", illegal.State)
	}
	if f.currentState(t) != StateRequested {
		t.Error("Expected the state to stay unchanged after a rejected transition")
	}
}

func TestApplyUnknownTransition(t *testing.T) {
	f := setupEngine(t)

	_, err := f.engine.Apply(f.project.ID, "teleport")
	if !errors.Is(err, ErrUnknownTransition) {
		t.Errorf("Expected ErrUnknownTransition, got %v", err)
	}
}

func TestApplyDropFromAnyState(t *testing.T) {
	f := setupEngine(t)

	for _, name := range []string{"scope", "introduce"} {
		if _, err := f.engine.Apply(f.project.ID, name); err != nil {
			t.Fatalf("Apply %s failed: %v", name, err)
		}
	}

	result, err := f.engine.Apply(f.project.ID, "drop")
	if err != nil {
		t.Fatalf("Apply drop failed: %v", err)
	}
	if result.Project.State != StateStopped {
		t.Errorf("Expected stopped, got %s", result.Project.State)
	}

	// Stopped is a sink: even drop cannot fire again.
	if _, err := f.engine.Apply(f.project.ID, "drop"); err == nil {
		t.Error("Expected drop from stopped to be rejected")
	}
}

func TestApplyDispatchesBoundTemplate(t *testing.T) {
	f := setupEngine(t)

	if err := f.db.Templates.Create(&database.MessageTemplate{
		Name:            "scope reply",
		Text:            "Hi {{.Manager.FirstName}}, {{.Project.Name}} looks great",
		StateTransition: "scope",
	}); err != nil {
		t.Fatalf("Failed to create template: %v", err)
	}

	result, err := f.engine.Apply(f.project.ID, "scope")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !result.Dispatched {
		t.Fatalf("Expected the reply to be dispatched, warning: %v", result.DispatchWarning)
	}

	if len(f.sender.sent) != 1 {
		t.Fatalf("Expected one outbound message, got %d", len(f.sender.sent))
	}
	sent := f.sender.sent[0]
	if sent.To != "jane@acme.com" {
		t.Errorf("Expected reply to the manager, got %s", sent.To)
	}
	if !strings.Contains(sent.HTMLBody, "Hi Jane") {
		t.Errorf("Expected rendered template, got %q", sent.HTMLBody)
	}
}

func TestApplyRepliesInsideExistingThread(t *testing.T) {
	f := setupEngine(t)

	if _, _, err := f.db.Messages.InsertIfNew(&database.ProjectMessage{
		GmailMessageID: "m1",
		GmailThreadID:  "t1",
		Subject:        "Need a contractor",
		SentAt:         time.Now().UTC(),
		ProjectID:      f.project.ID,
		AuthorID:       f.manager.ID,
	}); err != nil {
		t.Fatalf("Failed to store message: %v", err)
	}

	if err := f.db.Templates.Create(&database.MessageTemplate{
		Name:            "scope reply",
		Text:            "thanks",
		StateTransition: "scope",
	}); err != nil {
		t.Fatalf("Failed to create template: %v", err)
	}

	result, err := f.engine.Apply(f.project.ID, "scope")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !result.Dispatched {
		t.Fatalf("Expected dispatch, warning: %v", result.DispatchWarning)
	}

	sent := f.sender.sent[0]
	if sent.ThreadID != "t1" || sent.InReplyTo != "m1" {
		t.Errorf("Expected reply threading into t1/m1, got %s/%s", sent.ThreadID, sent.InReplyTo)
	}
	if sent.Subject != "Need a contractor" {
		t.Errorf("Expected the conversation subject to be reused, got %s", sent.Subject)
	}
}

func TestApplyDispatchFailureDoesNotRollBack(t *testing.T) {
	f := setupEngine(t)
	f.sender.err = fmt.Errorf("smtp unreachable")

	if err := f.db.Templates.Create(&database.MessageTemplate{
		Name:            "scope reply",
		Text:            "thanks",
		StateTransition: "scope",
	}); err != nil {
		t.Fatalf("Failed to create template: %v", err)
	}

	result, err := f.engine.Apply(f.project.ID, "scope")
	if err != nil {
		t.Fatalf("Expected the transition itself to succeed, got %v", err)
	}

	if result.Dispatched {
		t.Error("Expected dispatch to fail")
	}
	var dispatchErr *email.DispatchError
	if !errors.As(result.DispatchWarning, &dispatchErr) {
		t.Errorf("Expected *email.DispatchError warning, got %v", result.DispatchWarning)
	}
	// The committed state change survives the failed send.
	if f.currentState(t) != StateScoped {
		t.Error("Expected the state change to stay committed")
	}
}

func TestApplyBrokenTemplateIsAWarning(t *testing.T) {
	f := setupEngine(t)

	if err := f.db.Templates.Create(&database.MessageTemplate{
		Name:            "broken",
		Text:            "{{.Project.NoSuchField}}",
		StateTransition: "scope",
	}); err != nil {
		t.Fatalf("Failed to create template: %v", err)
	}

	result, err := f.engine.Apply(f.project.ID, "scope")
	if err != nil {
		t.Fatalf("Expected the transition itself to succeed, got %v", err)
	}

	var validationErr *compose.ValidationError
	if !errors.As(result.DispatchWarning, &validationErr) {
		t.Errorf("Expected *compose.ValidationError warning, got %v", result.DispatchWarning)
	}
	if f.currentState(t) != StateScoped {
		t.Error("Expected the state change to stay committed")
	}
}

func TestApplyWithoutManagerIsAWarning(t *testing.T) {
	f := setupEngine(t)

	orphan := &database.Project{Name: "No manager"}
	if err := f.db.Projects.Create(orphan); err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}
	if err := f.db.Templates.Create(&database.MessageTemplate{
		Name:            "scope reply",
		Text:            "thanks",
		StateTransition: "scope",
	}); err != nil {
		t.Fatalf("Failed to create template: %v", err)
	}

	result, err := f.engine.Apply(orphan.ID, "scope")
	if err != nil {
		t.Fatalf("Expected the transition itself to succeed, got %v", err)
	}
	if result.DispatchWarning == nil {
		t.Error("Expected a warning for the missing manager")
	}
}
