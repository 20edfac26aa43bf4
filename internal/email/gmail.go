package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailClient implements MailSource and MailSender against the Gmail API.
type GmailClient struct {
	service *gmail.Service
	userID  string
	logger  *slog.Logger
}

// NewGmailClient wraps an authenticated HTTP client into a Gmail mail source
// and sender for one mailbox.
func NewGmailClient(ctx context.Context, httpClient *http.Client, logger *slog.Logger) (*GmailClient, error) {
	service, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &GmailClient{
		service: service,
		userID:  "me",
		logger:  logger,
	}, nil
}

// ListLabels returns label name -> id for the mailbox.
func (g *GmailClient) ListLabels() (map[string]string, error) {
	resp, err := g.service.Users.Labels.List(g.userID).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}

	labels := make(map[string]string, len(resp.Labels))
	for _, label := range resp.Labels {
		labels[label.Name] = label.Id
	}
	return labels, nil
}

// ListMessageIDs returns ids of messages carrying the given label that are
// still in the inbox. INBOX restricts the listing to non-archived mail.
func (g *GmailClient) ListMessageIDs(labelID string) ([]string, error) {
	resp, err := g.service.Users.Messages.List(g.userID).LabelIds(labelID, "INBOX").Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages for label %s: %w", labelID, err)
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, msg := range resp.Messages {
		ids = append(ids, msg.Id)
	}
	return ids, nil
}

// GetRawMessage fetches one message in raw format.
func (g *GmailClient) GetRawMessage(id string) (*RawMessage, error) {
	msg, err := g.service.Users.Messages.Get(g.userID, id).Format("raw").Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}

	return &RawMessage{
		ID:           msg.Id,
		ThreadID:     msg.ThreadId,
		InternalDate: msg.InternalDate,
		Raw:          msg.Raw,
	}, nil
}

// Send dispatches an outbound message and returns the provider message id.
func (g *GmailClient) Send(msg *OutboundMessage) (string, error) {
	raw, err := BuildRaw(msg)
	if err != nil {
		return "", fmt.Errorf("failed to build outbound message: %w", err)
	}

	sent, err := g.service.Users.Messages.Send(g.userID, &gmail.Message{
		Raw:      raw,
		ThreadId: msg.ThreadID,
	}).Do()
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	g.logger.Info("Message sent", "to", msg.To, "subject", msg.Subject, "message_id", sent.Id)
	return sent.Id, nil
}
