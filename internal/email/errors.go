package email

import "fmt"

// ParseError marks a message whose raw payload could not be decoded. It is
// scoped to a single message: callers skip the message and continue the batch.
type ParseError struct {
	MessageID string
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse message %s: %v", e.MessageID, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// AuthError marks a broken or expired credential for one account. Sync skips
// the account and continues with the rest of the batch.
type AuthError struct {
	Account string
	Err     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for account %s: %v", e.Account, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// DispatchError marks a failed outbound send. By the time it occurs the state
// transition that triggered the send has already committed, so callers treat
// it as a warning, never a rollback.
type DispatchError struct {
	To  string
	Err error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("failed to send message to %s: %v", e.To, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}
