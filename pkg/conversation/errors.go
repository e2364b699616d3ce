package conversation

import "fmt"

type ConversationError string

func (e ConversationError) Error() string { return string(e) }

const (
	ErrNotConfigured ConversationError = "ChatGPT is not configured on the bot."
	ErrEmptyQuery    ConversationError = "query cannot be empty"
)

// FallbackReply is returned when the backend succeeds with no content.
const FallbackReply = "Something went wrong. Blame Open AI."

// BackendError wraps a failed backend call.
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	if e.Backend == "" {
		return fmt.Sprintf("backend request failed: %v", e.Err)
	}
	return fmt.Sprintf("%s request failed: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }
