package domain

// ---------------------------------------------------------------------------
// Shared value objects
// ---------------------------------------------------------------------------

// MessageRole is who authored a conversation turn.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

func (mr MessageRole) String() string { return string(mr) }

// Valid returns true if the role is recognized.
func (mr MessageRole) Valid() bool {
	switch mr {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// ---------------------------------------------------------------------------

// ProviderType is the generative backend family.
type ProviderType string

const (
	ProviderOpenAI    ProviderType = "openai"
	ProviderAnthropic ProviderType = "anthropic"
)

func (pt ProviderType) String() string { return string(pt) }

// ---------------------------------------------------------------------------

// Metadata is a generic key-value map for event payloads.
type Metadata map[string]string

// Get returns a metadata value, or empty string if not present.
func (m Metadata) Get(key string) string {
	if m == nil {
		return ""
	}
	return m[key]
}
