package workers

import (
	"context"
	"errors"
	"log/slog"

	"freeturn/internal/crm"
	"freeturn/internal/database"
	"freeturn/internal/email"
)

// Account is one configured mailbox owner. An account may carry several
// credentials; each is pulled independently.
type Account struct {
	Name        string
	Email       string
	Credentials []email.OAuthCredential
}

// SyncConfig configures one sync run.
type SyncConfig struct {
	// MailboxLabel is the provider label that scopes synchronization.
	MailboxLabel string
	// MaxMessages caps how many messages are pulled per mailbox per run.
	// Zero means no limit.
	MaxMessages int
	Accounts    []Account
}

// SourceFactory builds a MailSource for one credential. A broken credential
// surfaces as *email.AuthError so the account can be skipped.
type SourceFactory func(ctx context.Context, account string, cred email.OAuthCredential) (email.MailSource, error)

// CVGenerator is the external CV-generation collaborator, invoked
// fire-and-forget for projects that have none yet.
type CVGenerator interface {
	Generate(project *database.Project) (*database.CV, error)
}

// SyncSummary aggregates one sync run: how much was processed, what was
// skipped as already known, and which accounts failed outright. Partial
// failures never abort the batch.
type SyncSummary struct {
	NewMessages   []database.ProjectMessage
	Processed     int
	Skipped       int
	Failed        int
	AccountErrors []error
}

// Syncer pulls inbound mail for every configured account and drives each
// message through parse, entity resolution, project matching and
// deduplicated storage.
type Syncer struct {
	config    *SyncConfig
	sources   SourceFactory
	parser    *email.Parser
	resolver  *crm.Resolver
	matcher   *crm.Matcher
	messages  *database.MessageStore
	cvs       *database.CVStore
	generator CVGenerator // optional
	logger    *slog.Logger
}

// NewSyncer creates the sync orchestrator. generator may be nil to disable
// CV auto-generation.
func NewSyncer(
	config *SyncConfig,
	sources SourceFactory,
	parser *email.Parser,
	resolver *crm.Resolver,
	matcher *crm.Matcher,
	messages *database.MessageStore,
	cvs *database.CVStore,
	generator CVGenerator,
	logger *slog.Logger,
) *Syncer {
	return &Syncer{
		config:    config,
		sources:   sources,
		parser:    parser,
		resolver:  resolver,
		matcher:   matcher,
		messages:  messages,
		cvs:       cvs,
		generator: generator,
		logger:    logger,
	}
}

// Sync runs one synchronization pass over all configured accounts. With no
// accounts configured it is a no-op, not an error. Messages are processed in
// provider order; the unique provider message id makes repeat runs
// idempotent.
func (s *Syncer) Sync(ctx context.Context) (*SyncSummary, error) {
	summary := &SyncSummary{}

	if len(s.config.Accounts) == 0 {
		s.logger.Debug("No mail accounts configured, nothing to sync")
		return summary, nil
	}

	for _, account := range s.config.Accounts {
		for _, cred := range account.Credentials {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			default:
			}

			source, err := s.sources(ctx, account.Name, cred)
			if err != nil {
				var authErr *email.AuthError
				if errors.As(err, &authErr) {
					s.logger.Warn("Skipping account, authentication failed",
						"account", account.Name, "error", err)
					summary.AccountErrors = append(summary.AccountErrors, err)
					continue
				}
				return summary, err
			}

			s.syncSource(source, account, summary)
		}
	}

	s.logger.Info("Sync completed",
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"account_errors", len(summary.AccountErrors))

	return summary, nil
}

// syncSource pulls and processes all labeled messages of one mailbox.
func (s *Syncer) syncSource(source email.MailSource, account Account, summary *SyncSummary) {
	raws, err := s.pullRawMessages(source, account.Name)
	if err != nil {
		s.logger.Warn("Failed to pull messages", "account", account.Name, "error", err)
		summary.AccountErrors = append(summary.AccountErrors, err)
		return
	}

	for _, raw := range raws {
		s.processMessage(raw, summary)
	}
}

// pullRawMessages lists the mailbox label and fetches every message under
// it. A missing label yields zero messages and an error log, not a failure.
func (s *Syncer) pullRawMessages(source email.MailSource, account string) ([]*email.RawMessage, error) {
	labels, err := source.ListLabels()
	if err != nil {
		return nil, err
	}

	labelID, ok := labels[s.config.MailboxLabel]
	if !ok {
		s.logger.Error("Mailbox label not found",
			"account", account, "label", s.config.MailboxLabel)
		return nil, nil
	}

	ids, err := source.ListMessageIDs(labelID)
	if err != nil {
		return nil, err
	}
	if s.config.MaxMessages > 0 && len(ids) > s.config.MaxMessages {
		ids = ids[:s.config.MaxMessages]
	}

	raws := make([]*email.RawMessage, 0, len(ids))
	for _, id := range ids {
		raw, err := source.GetRawMessage(id)
		if err != nil {
			s.logger.Warn("Failed to fetch message", "message_id", id, "error", err)
			continue
		}
		raws = append(raws, raw)
	}
	return raws, nil
}

// processMessage drives one raw message through the pipeline. Any failure is
// scoped to the message: logged, counted, and the batch continues.
func (s *Syncer) processMessage(raw *email.RawMessage, summary *SyncSummary) {
	parsed, err := s.parser.Parse(raw)
	if err != nil {
		s.logger.Warn("Skipping unparseable message", "message_id", raw.ID, "error", err)
		summary.Failed++
		return
	}

	person, err := s.resolver.ResolvePerson(parsed)
	if err != nil {
		s.logger.Error("Failed to resolve person", "message_id", raw.ID, "error", err)
		summary.Failed++
		return
	}

	project, err := s.matcher.MatchOrCreate(parsed, person)
	if err != nil {
		s.logger.Error("Failed to match project", "message_id", raw.ID, "error", err)
		summary.Failed++
		return
	}

	stored, created, err := s.messages.InsertIfNew(&database.ProjectMessage{
		GmailMessageID: parsed.GmailMessageID,
		GmailThreadID:  parsed.GmailThreadID,
		Subject:        parsed.Subject,
		Sender:         parsed.FromAddress,
		Body:           parsed.Body,
		SentAt:         parsed.SentAt,
		ProjectID:      project.ID,
		AuthorID:       person.ID,
	})
	if err != nil {
		s.logger.Error("Failed to store message", "message_id", raw.ID, "error", err)
		summary.Failed++
		return
	}

	if !created {
		summary.Skipped++
		return
	}

	summary.Processed++
	summary.NewMessages = append(summary.NewMessages, *stored)
	s.ensureCV(project)
}

// ensureCV triggers CV generation for projects that have none. This is a
// convenience side effect of sync; its failure never fails the run.
func (s *Syncer) ensureCV(project *database.Project) {
	if s.generator == nil {
		return
	}

	exists, err := s.cvs.ExistsForProject(project.ID)
	if err != nil {
		s.logger.Warn("Failed to check for existing CV", "project_id", project.ID, "error", err)
		return
	}
	if exists {
		return
	}

	if _, err := s.generator.Generate(project); err != nil {
		s.logger.Warn("CV auto-generation failed", "project_id", project.ID, "error", err)
	}
}

// GmailSourceFactory builds Gmail-backed mail sources using the given
// credential provider.
func GmailSourceFactory(provider email.CredentialProvider, logger *slog.Logger) SourceFactory {
	return func(ctx context.Context, account string, cred email.OAuthCredential) (email.MailSource, error) {
		httpClient, err := provider.Client(ctx, account, cred)
		if err != nil {
			return nil, err
		}
		return email.NewGmailClient(ctx, httpClient, logger)
	}
}
