// Package engine hosts the per-session execution context: a stateful
// interpreter that carries conversation history, accepts a mutable
// per-turn instruction preamble, and streams output fragments from an
// LLM provider.
package engine

// Message represents a single conversation turn
type Message struct {
	Role    string `json:"role"`
	Type    string `json:"type,omitempty"`
	Content string `json:"content"`
}

// Fragment is one unit of streamed chat output
type Fragment struct {
	Role    string `json:"role"`
	Type    string `json:"type"` // message, error
	Content string `json:"content"`
}

// ErrorFragment builds the terminal in-band error fragment for a failed turn
func ErrorFragment(err error) Fragment {
	return Fragment{
		Role:    "assistant",
		Type:    "error",
		Content: err.Error(),
	}
}
