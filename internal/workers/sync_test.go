package workers

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"freeturn/internal/crm"
	"freeturn/internal/database"
	"freeturn/internal/email"
	"freeturn/internal/lifecycle"
)

// fakeSource serves canned messages for one mailbox.
type fakeSource struct {
	labels   map[string]string
	order    []string
	messages map[string]*email.RawMessage
}

func (f *fakeSource) ListLabels() (map[string]string, error) {
	return f.labels, nil
}

func (f *fakeSource) ListMessageIDs(labelID string) ([]string, error) {
	if labelID != "L1" {
		return nil, fmt.Errorf("unknown label id %s", labelID)
	}
	return f.order, nil
}

func (f *fakeSource) GetRawMessage(id string) (*email.RawMessage, error) {
	raw, ok := f.messages[id]
	if !ok {
		return nil, fmt.Errorf("no such message %s", id)
	}
	return raw, nil
}

// fakeGenerator records which projects it was asked to build a CV for.
type fakeGenerator struct {
	db        *database.DB
	generated []int
}

func (f *fakeGenerator) Generate(project *database.Project) (*database.CV, error) {
	f.generated = append(f.generated, project.ID)
	cv := &database.CV{ProjectID: project.ID, Document: []byte("pdf")}
	if err := f.db.CVs.Create(cv); err != nil {
		return nil, err
	}
	return cv, nil
}

type syncFixture struct {
	db     *database.DB
	source *fakeSource
	syncer *Syncer
}

func inboundMessage(id, threadID, from, subject, body string) *email.RawMessage {
	payload := "From: " + from + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		body
	return &email.RawMessage{
		ID:           id,
		ThreadID:     threadID,
		InternalDate: 1709294400000,
		Raw:          base64.URLEncoding.EncodeToString([]byte(payload)),
	}
}

func setupSyncer(t *testing.T, factory SourceFactory, generator CVGenerator) *syncFixture {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	source := &fakeSource{
		labels:   map[string]string{"CRM": "L1"},
		messages: map[string]*email.RawMessage{},
	}
	if factory == nil {
		factory = func(ctx context.Context, account string, cred email.OAuthCredential) (email.MailSource, error) {
			return source, nil
		}
	}

	config := &SyncConfig{
		MailboxLabel: "CRM",
		Accounts: []Account{{
			Name:        "default",
			Email:       "me@example.com",
			Credentials: []email.OAuthCredential{{ClientID: "id", ClientSecret: "secret", RefreshToken: "token"}},
		}},
	}

	syncer := NewSyncer(config, factory,
		email.NewParser(logger),
		crm.NewResolver(db.People, db.Organizations, logger),
		crm.NewMatcher(db.Projects, db.Messages, db.Organizations, logger),
		db.Messages, db.CVs, generator, logger)

	return &syncFixture{db: db, source: source, syncer: syncer}
}

func TestSyncStoresInboundMail(t *testing.T) {
	f := setupSyncer(t, nil, nil)
	f.source.order = []string{"m1"}
	f.source.messages["m1"] = inboundMessage("m1", "t1",
		"Jane Doe <jane@acme.com>", "Need a contractor", "long description")

	summary, err := f.syncer.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if summary.Processed != 1 || summary.Skipped != 0 || summary.Failed != 0 {
		t.Errorf("Unexpected summary: %+v", summary)
	}
	if len(summary.NewMessages) != 1 {
		t.Fatalf("Expected one new message, got %d", len(summary.NewMessages))
	}

	// The full chain materializes: organization, person, project, message.
	person, err := f.db.People.GetByEmail("jane@acme.com")
	if err != nil || person == nil {
		t.Fatalf("Expected the sender to be stored: %v", err)
	}
	if person.FirstName != "Jane" || person.LastName != "Doe" {
		t.Errorf("Expected split name, got %s %s", person.FirstName, person.LastName)
	}

	org, err := f.db.Organizations.GetByID(person.OrganizationID)
	if err != nil || org == nil {
		t.Fatalf("Expected an organization: %v", err)
	}
	if org.Name != "Acme" {
		t.Errorf("Expected organization Acme, got %s", org.Name)
	}

	stored := summary.NewMessages[0]
	project, err := f.db.Projects.GetByID(stored.ProjectID)
	if err != nil || project == nil {
		t.Fatalf("Expected a project: %v", err)
	}
	if project.Name != "Need a contractor" {
		t.Errorf("Expected project named after the subject, got %s", project.Name)
	}
	if project.State != lifecycle.InitialState {
		t.Errorf("Expected a fresh project in the initial state, got %s", project.State)
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	f := setupSyncer(t, nil, nil)
	f.source.order = []string{"m1"}
	f.source.messages["m1"] = inboundMessage("m1", "t1",
		"Jane Doe <jane@acme.com>", "Need a contractor", "body")

	if _, err := f.syncer.Sync(context.Background()); err != nil {
		t.Fatalf("First sync failed: %v", err)
	}

	summary, err := f.syncer.Sync(context.Background())
	if err != nil {
		t.Fatalf("Second sync failed: %v", err)
	}
	if summary.Processed != 0 || summary.Skipped != 1 {
		t.Errorf("Expected the repeat message to be skipped, got %+v", summary)
	}

	messages, err := f.db.Messages.LatestForProject(1)
	if err != nil {
		t.Fatalf("LatestForProject failed: %v", err)
	}
	if messages == nil {
		t.Fatal("Expected the message to be stored exactly once")
	}
}

func TestSyncSkipsAccountOnAuthFailure(t *testing.T) {
	factory := func(ctx context.Context, account string, cred email.OAuthCredential) (email.MailSource, error) {
		return nil, &email.AuthError{Account: account, Err: fmt.Errorf("invalid_grant")}
	}
	f := setupSyncer(t, factory, nil)

	summary, err := f.syncer.Sync(context.Background())
	if err != nil {
		t.Fatalf("Expected auth failure to be absorbed, got %v", err)
	}
	if len(summary.AccountErrors) != 1 {
		t.Errorf("Expected one account error, got %d", len(summary.AccountErrors))
	}
	if summary.Processed != 0 {
		t.Errorf("Expected nothing processed, got %d", summary.Processed)
	}
}

func TestSyncMissingLabelIsNotFatal(t *testing.T) {
	f := setupSyncer(t, nil, nil)
	f.source.labels = map[string]string{"INBOX": "L9"}

	summary, err := f.syncer.Sync(context.Background())
	if err != nil {
		t.Fatalf("Expected a missing label to be tolerated, got %v", err)
	}
	if summary.Processed != 0 || summary.Failed != 0 || len(summary.AccountErrors) != 0 {
		t.Errorf("Expected an empty run, got %+v", summary)
	}
}

func TestSyncSkipsUnparseableMessage(t *testing.T) {
	f := setupSyncer(t, nil, nil)
	f.source.order = []string{"bad", "m1"}
	f.source.messages["bad"] = &email.RawMessage{ID: "bad", ThreadID: "t0", Raw: "%%%not-base64%%%"}
	f.source.messages["m1"] = inboundMessage("m1", "t1",
		"Jane Doe <jane@acme.com>", "Need a contractor", "body")

	summary, err := f.syncer.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if summary.Failed != 1 || summary.Processed != 1 {
		t.Errorf("Expected the broken message to be counted as failed, got %+v", summary)
	}
}

func TestSyncGeneratesCVForNewProject(t *testing.T) {
	f := setupSyncer(t, nil, nil)
	generator := &fakeGenerator{db: f.db}
	f.syncer.generator = generator

	f.source.order = []string{"m1"}
	f.source.messages["m1"] = inboundMessage("m1", "t1",
		"Jane Doe <jane@acme.com>", "Need a contractor", "body")

	if _, err := f.syncer.Sync(context.Background()); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if len(generator.generated) != 1 {
		t.Fatalf("Expected one CV generation, got %d", len(generator.generated))
	}

	// A follow-up in the same thread must not generate a second CV.
	f.source.order = []string{"m2"}
	f.source.messages["m2"] = inboundMessage("m2", "t1",
		"Jane Doe <jane@acme.com>", "Re: Need a contractor", "more details")

	if _, err := f.syncer.Sync(context.Background()); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if len(generator.generated) != 1 {
		t.Errorf("Expected CV generation to run once, got %d", len(generator.generated))
	}
}

func TestSyncRespectsMaxMessages(t *testing.T) {
	f := setupSyncer(t, nil, nil)
	f.syncer.config.MaxMessages = 1

	f.source.order = []string{"m1", "m2"}
	f.source.messages["m1"] = inboundMessage("m1", "t1",
		"Jane Doe <jane@acme.com>", "Need a contractor", "body")
	f.source.messages["m2"] = inboundMessage("m2", "t2",
		"Bob <bob@globex.com>", "Another inquiry", "body")

	summary, err := f.syncer.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if summary.Processed != 1 {
		t.Errorf("Expected the pull to be capped at 1 message, got %d processed", summary.Processed)
	}
}

func TestSyncNoAccountsConfigured(t *testing.T) {
	f := setupSyncer(t, nil, nil)
	f.syncer.config.Accounts = nil

	summary, err := f.syncer.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if summary.Processed != 0 || len(summary.AccountErrors) != 0 {
		t.Errorf("Expected an empty summary, got %+v", summary)
	}
}

func TestSyncStopsOnCancelledContext(t *testing.T) {
	f := setupSyncer(t, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.syncer.Sync(ctx); err == nil {
		t.Error("Expected a cancelled context to abort the run")
	}
}
