package email

import (
	"encoding/base64"
	"strings"
	"testing"
)

func decodeRaw(t *testing.T, raw string) string {
	t.Helper()
	decoded, err := base64.URLEncoding.DecodeString(raw)
	if err != nil {
		t.Fatalf("Expected base64url payload: %v", err)
	}
	return string(decoded)
}

func TestBuildRaw(t *testing.T) {
	raw, err := BuildRaw(&OutboundMessage{
		From:     "me@example.com",
		To:       "jane@acme.com",
		Subject:  "Need a contractor",
		HTMLBody: "<p>Hi Jane</p>",
	})
	if err != nil {
		t.Fatalf("BuildRaw failed: %v", err)
	}

	payload := decodeRaw(t, raw)
	for _, want := range []string{
		"From: me@example.com",
		"To: jane@acme.com",
		"Subject: Need a contractor",
		"Content-Type: multipart/mixed",
		"text/html; charset=utf-8",
		"<p>Hi Jane</p>",
	} {
		if !strings.Contains(payload, want) {
			t.Errorf("Expected payload to contain %q", want)
		}
	}
	if strings.Contains(payload, "In-Reply-To") {
		t.Error("Expected no threading headers on a fresh message")
	}
}

func TestBuildRawReplyThreading(t *testing.T) {
	raw, err := BuildRaw(&OutboundMessage{
		From:      "me@example.com",
		To:        "jane@acme.com",
		Subject:   "Re: Need a contractor",
		HTMLBody:  "ok",
		ThreadID:  "t1",
		InReplyTo: "m1",
	})
	if err != nil {
		t.Fatalf("BuildRaw failed: %v", err)
	}

	payload := decodeRaw(t, raw)
	if !strings.Contains(payload, "In-Reply-To: m1") || !strings.Contains(payload, "References: m1") {
		t.Error("Expected threading headers on a reply")
	}
}

func TestBuildRawWithAttachment(t *testing.T) {
	raw, err := BuildRaw(&OutboundMessage{
		From:     "me@example.com",
		To:       "jane@acme.com",
		Subject:  "CV",
		HTMLBody: "see attached",
		Attachment: &Attachment{
			Filename:    "cv.pdf",
			ContentType: "application/pdf",
			Data:        []byte("%PDF-1.4"),
		},
	})
	if err != nil {
		t.Fatalf("BuildRaw failed: %v", err)
	}

	payload := decodeRaw(t, raw)
	if !strings.Contains(payload, `attachment; filename="cv.pdf"`) {
		t.Error("Expected attachment disposition header")
	}
	if !strings.Contains(payload, base64.StdEncoding.EncodeToString([]byte("%PDF-1.4"))) {
		t.Error("Expected base64 attachment data")
	}
}

func TestBuildRawRequiresRecipient(t *testing.T) {
	if _, err := BuildRaw(&OutboundMessage{From: "me@example.com"}); err == nil {
		t.Error("Expected an error for a message without recipient")
	}
}
