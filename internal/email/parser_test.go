package email

import (
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func testParser() *Parser {
	return NewParser(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// rawMessage wraps an RFC 822 payload the way the provider delivers it.
func rawMessage(id, threadID string, internalDate int64, payload string) *RawMessage {
	return &RawMessage{
		ID:           id,
		ThreadID:     threadID,
		InternalDate: internalDate,
		Raw:          base64.URLEncoding.EncodeToString([]byte(payload)),
	}
}

func TestParsePlainText(t *testing.T) {
	payload := "From: Jane Doe <jane@acme.com>\r\n" +
		"To: me@example.com\r\n" +
		"Subject: Need a contractor\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Hello,\nwe need a Django contractor.\n"

	sentAt := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	parsed, err := testParser().Parse(rawMessage("m1", "t1", sentAt.UnixMilli(), payload))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if parsed.GmailMessageID != "m1" || parsed.GmailThreadID != "t1" {
		t.Errorf("Expected provider ids to be carried over, got %+v", parsed)
	}
	if parsed.FromAddress != "jane@acme.com" {
		t.Errorf("Expected sender jane@acme.com, got %s", parsed.FromAddress)
	}
	if parsed.FullName != "Jane Doe" {
		t.Errorf("Expected full name Jane Doe, got %s", parsed.FullName)
	}
	if parsed.Subject != "Need a contractor" {
		t.Errorf("Expected subject, got %s", parsed.Subject)
	}
	if !strings.Contains(parsed.Body, "Django contractor") {
		t.Errorf("Expected body text, got %q", parsed.Body)
	}
	if !parsed.SentAt.Equal(sentAt) {
		t.Errorf("Expected sent time %v, got %v", sentAt, parsed.SentAt)
	}
}

func TestParseMultipartPicksPlainText(t *testing.T) {
	payload := "From: jane@acme.com\r\n" +
		"Subject: offer\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=\"SEP\"\r\n" +
		"\r\n" +
		"--SEP\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"plain body\r\n" +
		"--SEP\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<b>html body</b>\r\n" +
		"--SEP--\r\n"

	parsed, err := testParser().Parse(rawMessage("m1", "t1", 0, payload))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if strings.TrimSpace(parsed.Body) != "plain body" {
		t.Errorf("Expected the plain part, got %q", parsed.Body)
	}
}

func TestParseBase64TransferEncoding(t *testing.T) {
	body := base64.StdEncoding.EncodeToString([]byte("encoded content"))
	payload := "From: jane@acme.com\r\n" +
		"Subject: offer\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		body + "\r\n"

	parsed, err := testParser().Parse(rawMessage("m1", "t1", 0, payload))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if strings.TrimSpace(parsed.Body) != "encoded content" {
		t.Errorf("Expected decoded body, got %q", parsed.Body)
	}
}

func TestParseQuotedPrintable(t *testing.T) {
	payload := "From: jane@acme.com\r\n" +
		"Subject: offer\r\n" +
		"Content-Type: text/plain; charset=iso-8859-1\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		"caf=E9\r\n"

	parsed, err := testParser().Parse(rawMessage("m1", "t1", 0, payload))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if strings.TrimSpace(parsed.Body) != "café" {
		t.Errorf("Expected latin-1 decoding, got %q", parsed.Body)
	}
}

func TestParseEncodedSubject(t *testing.T) {
	payload := "From: jane@acme.com\r\n" +
		"Subject: =?UTF-8?B?UHJvamVrdCBNw7xuY2hlbg==?=\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"body\r\n"

	parsed, err := testParser().Parse(rawMessage("m1", "t1", 0, payload))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if parsed.Subject != "Projekt München" {
		t.Errorf("Expected decoded subject, got %q", parsed.Subject)
	}
}

func TestParseMissingFrom(t *testing.T) {
	payload := "Subject: anonymous\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"body\r\n"

	parsed, err := testParser().Parse(rawMessage("m1", "t1", 0, payload))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if parsed.FromAddress != "unknown" || parsed.FullName != "unknown" {
		t.Errorf("Expected unknown sentinels, got %q %q", parsed.FromAddress, parsed.FullName)
	}
}

func TestParseHTMLOnlyYieldsEmptyBody(t *testing.T) {
	payload := "From: jane@acme.com\r\n" +
		"Subject: offer\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>html only</p>\r\n"

	parsed, err := testParser().Parse(rawMessage("m1", "t1", 0, payload))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if parsed.Body != "" {
		t.Errorf("Expected empty body for HTML-only message, got %q", parsed.Body)
	}
}

func TestParseInvalidPayload(t *testing.T) {
	_, err := testParser().Parse(&RawMessage{ID: "m1", Raw: "%%% not base64 %%%"})
	if err == nil {
		t.Fatal("Expected a parse error")
	}

	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Expected *ParseError, got %T", err)
	}
	if parseErr.MessageID != "m1" {
		t.Errorf("Expected error scoped to m1, got %s", parseErr.MessageID)
	}
}

func TestRemoveQuotation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "no quotes",
			body: "fresh text\nmore text",
			want: "fresh text\nmore text",
		},
		{
			name: "single quoted fragment survives",
			body: "as you wrote:\n> original offer\nworks for me",
			want: "as you wrote:\n> original offer\nworks for me",
		},
		{
			name: "trailing thread stripped at second quote line",
			body: "thanks!\n> you wrote:\n> long original message",
			want: "thanks!\n> you wrote:",
		},
		{
			name: "reply on top of quoted conversation",
			body: "sounds good\n\nOn Monday Jane wrote:\n> hello\n> are you available?\n> regards",
			want: "sounds good\n\nOn Monday Jane wrote:\n> hello",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := removeQuotation(tt.body); got != tt.want {
				t.Errorf("removeQuotation() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseFromFallback(t *testing.T) {
	// Headers net/mail rejects still yield an address.
	address, name := parseFrom("Jane Doe :: Acme <jane@acme.com>")
	if address != "jane@acme.com" {
		t.Errorf("Expected angle-bracket fallback, got %q", address)
	}
	if name == "" {
		t.Error("Expected a display name from the fallback")
	}
}
