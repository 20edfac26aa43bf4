package email

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/textproto"
)

// BuildRaw renders an outbound message into the base64url payload the
// provider's send call expects: a multipart MIME message with an HTML body
// and at most one attachment. Threading headers are set only when replying
// inside an existing conversation.
func BuildRaw(msg *OutboundMessage) (string, error) {
	if msg.To == "" {
		return "", fmt.Errorf("outbound message has no recipient")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", msg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", msg.Subject)
	if msg.InReplyTo != "" {
		fmt.Fprintf(&buf, "In-Reply-To: %s\r\n", msg.InReplyTo)
		fmt.Fprintf(&buf, "References: %s\r\n", msg.InReplyTo)
	}
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n", writer.Boundary())
	buf.WriteString("\r\n")

	bodyHeader := textproto.MIMEHeader{}
	bodyHeader.Set("Content-Type", "text/html; charset=utf-8")
	bodyPart, err := writer.CreatePart(bodyHeader)
	if err != nil {
		return "", fmt.Errorf("failed to create body part: %w", err)
	}
	if _, err := bodyPart.Write([]byte(msg.HTMLBody)); err != nil {
		return "", fmt.Errorf("failed to write body: %w", err)
	}

	if att := msg.Attachment; att != nil {
		attHeader := textproto.MIMEHeader{}
		attHeader.Set("Content-Type", att.ContentType)
		attHeader.Set("Content-Transfer-Encoding", "base64")
		attHeader.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", att.Filename))
		attPart, err := writer.CreatePart(attHeader)
		if err != nil {
			return "", fmt.Errorf("failed to create attachment part: %w", err)
		}
		encoded := base64.StdEncoding.EncodeToString(att.Data)
		if _, err := attPart.Write([]byte(encoded)); err != nil {
			return "", fmt.Errorf("failed to write attachment: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize message: %w", err)
	}

	return base64.URLEncoding.EncodeToString(buf.Bytes()), nil
}
