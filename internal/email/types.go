package email

import (
	"time"
)

// RawMessage is one message as the provider hands it over: an opaque
// base64url-encoded RFC 822 payload plus provider metadata.
type RawMessage struct {
	ID           string `json:"id"`
	ThreadID     string `json:"thread_id"`
	InternalDate int64  `json:"internal_date"` // epoch milliseconds
	Raw          string `json:"raw"`           // base64url-encoded MIME message
}

// ParsedMessage is the normalized form of one inbound message.
type ParsedMessage struct {
	GmailMessageID string    `json:"gmail_message_id"`
	GmailThreadID  string    `json:"gmail_thread_id"`
	Subject        string    `json:"subject"`
	FromAddress    string    `json:"from_address"`
	FullName       string    `json:"full_name"`
	Body           string    `json:"body"`
	SentAt         time.Time `json:"sent_at"`
}

// MailSource yields raw messages for one mailbox. Implementations wrap a
// concrete provider; the sync engine only ever sees this interface.
type MailSource interface {
	// ListLabels returns label name -> label id for the mailbox.
	ListLabels() (map[string]string, error)

	// ListMessageIDs returns the ids of non-archived messages under a label.
	ListMessageIDs(labelID string) ([]string, error)

	// GetRawMessage fetches one message in raw format.
	GetRawMessage(id string) (*RawMessage, error)
}

// MailSender dispatches one outbound message and returns the provider's
// message id for it.
type MailSender interface {
	Send(msg *OutboundMessage) (string, error)
}

// Attachment is a single file attached to an outbound message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// OutboundMessage is a composed reply ready for dispatch.
type OutboundMessage struct {
	From     string
	To       string
	Subject  string
	HTMLBody string

	// Threading metadata. When ThreadID and InReplyTo are set the message is
	// sent as a reply inside an existing conversation.
	ThreadID  string
	InReplyTo string

	Attachment *Attachment
}
