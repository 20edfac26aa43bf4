package email

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"time"
)

// unknownSender is used when a message carries no From header at all.
const unknownSender = "unknown"

// Parser turns raw provider messages into ParsedMessage records. It is a pure
// transformation: no storage or network access.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a message parser.
func NewParser(logger *slog.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse decodes the base64url payload of a raw message and extracts sender,
// subject, timestamp and the plain-text body with trailing quoted replies
// stripped. A malformed payload yields a *ParseError scoped to this message.
func (p *Parser) Parse(raw *RawMessage) (*ParsedMessage, error) {
	payload, err := decodeBase64URL(raw.Raw)
	if err != nil {
		return nil, &ParseError{MessageID: raw.ID, Err: fmt.Errorf("invalid base64 payload: %w", err)}
	}

	msg, err := mail.ReadMessage(bytes.NewReader(payload))
	if err != nil {
		return nil, &ParseError{MessageID: raw.ID, Err: fmt.Errorf("unparseable MIME message: %w", err)}
	}

	fromAddress, fullName := parseFrom(msg.Header.Get("From"))

	parsed := &ParsedMessage{
		GmailMessageID: raw.ID,
		GmailThreadID:  raw.ThreadID,
		Subject:        decodeHeader(msg.Header.Get("Subject")),
		FromAddress:    fromAddress,
		FullName:       fullName,
		SentAt:         time.UnixMilli(raw.InternalDate).UTC(),
	}

	body, err := p.extractText(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	if err != nil {
		return nil, &ParseError{MessageID: raw.ID, Err: err}
	}
	parsed.Body = removeQuotation(body)

	return parsed, nil
}

// parseFrom splits a From header into address and display name. A missing
// header maps both to the "unknown" sentinel instead of failing the message.
func parseFrom(header string) (address, name string) {
	if header == "" {
		return unknownSender, unknownSender
	}
	addr, err := mail.ParseAddress(header)
	if err != nil {
		// Tolerate headers net/mail rejects: take everything inside the
		// angle brackets as the address, the rest as the name.
		if open := strings.Index(header, "<"); open >= 0 {
			if close := strings.Index(header[open:], ">"); close > 0 {
				address = header[open+1 : open+close]
				name = strings.TrimSpace(strings.Replace(header, header[open:open+close+1], "", 1))
				return address, name
			}
		}
		return strings.TrimSpace(header), ""
	}
	return addr.Address, strings.TrimSpace(addr.Name)
}

// decodeHeader decodes RFC 2047 encoded words, returning the raw value when
// decoding fails.
func decodeHeader(value string) string {
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// extractText walks the MIME structure depth-first and returns the first
// text/plain leaf. Unsupported top-level types yield an empty body and a
// logged warning; only a structurally broken message is an error.
func (p *Parser) extractText(contentType, transferEncoding string, body io.Reader) (string, error) {
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("invalid content type %q: %w", contentType, err)
	}

	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		boundary := params["boundary"]
		if boundary == "" {
			return "", fmt.Errorf("multipart message without boundary")
		}
		return p.extractMultipartText(body, boundary)

	case mediaType == "text/plain":
		return decodeTextPart(body, transferEncoding, params["charset"])

	case strings.HasPrefix(mediaType, "text/"):
		// Single-part HTML or similar: nothing to pick a plain leaf from.
		p.logger.Warn("No plain text part in message", "content_type", mediaType)
		return "", nil

	default:
		p.logger.Warn("Unsupported top-level content type", "content_type", mediaType)
		return "", nil
	}
}

// extractMultipartText scans multipart parts in order and returns the first
// text/plain leaf, descending into nested multiparts.
func (p *Parser) extractMultipartText(body io.Reader, boundary string) (string, error) {
	reader := multipart.NewReader(body, boundary)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return "", nil
		}
		if err != nil {
			return "", fmt.Errorf("broken multipart structure: %w", err)
		}

		partType := part.Header.Get("Content-Type")
		if partType == "" {
			partType = "text/plain; charset=utf-8"
		}
		mediaType, params, err := mime.ParseMediaType(partType)
		if err != nil {
			continue
		}

		if strings.HasPrefix(mediaType, "multipart/") {
			text, err := p.extractMultipartText(part, params["boundary"])
			if err != nil {
				return "", err
			}
			if text != "" {
				return text, nil
			}
			continue
		}

		if mediaType == "text/plain" {
			return decodeTextPart(part, part.Header.Get("Content-Transfer-Encoding"), params["charset"])
		}
	}
}

// decodeTextPart reads a text leaf, undoing the transfer encoding and
// converting from the declared charset with lossy UTF-8 fallback.
func decodeTextPart(r io.Reader, transferEncoding, charset string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(transferEncoding)) {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read text part: %w", err)
	}

	return decodeCharset(data, charset), nil
}

// decodeCharset converts bytes in the declared charset to a UTF-8 string,
// replacing undecodable bytes rather than failing.
func decodeCharset(data []byte, charset string) string {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "iso-8859-1", "latin1", "windows-1252":
		// Single-byte charsets map directly onto the first Unicode page.
		runes := make([]rune, len(data))
		for i, b := range data {
			runes[i] = rune(b)
		}
		return string(runes)
	default:
		// utf-8, us-ascii and anything unknown: lossy UTF-8.
		return strings.ToValidUTF8(string(data), "�")
	}
}

// removeQuotation truncates the body at the second line starting with ">".
// A single quoted fragment inside fresh text survives; a trailing quoted
// thread is stripped. Bodies with fewer than two quote markers pass through.
func removeQuotation(text string) string {
	lines := strings.Split(text, "\n")
	quotationStarted := false
	for i, line := range lines {
		if strings.HasPrefix(line, ">") {
			if quotationStarted {
				return strings.Join(lines[:i], "\n")
			}
			quotationStarted = true
		}
	}
	return text
}

// decodeBase64URL decodes base64url payloads with or without padding, which
// is how the provider emits raw message bodies.
func decodeBase64URL(s string) ([]byte, error) {
	if decoded, err := base64.URLEncoding.DecodeString(s); err == nil {
		return decoded, nil
	}
	return base64.RawURLEncoding.DecodeString(s)
}
