package models

// Author identifies who wrote a conversation entry.
type Author string

const (
	AuthorUser      Author = "user"
	AuthorAssistant Author = "assistant"
)

// ConversationEntry is one chat line in a session transcript.
type ConversationEntry struct {
	ID        string `json:"id"`
	Author    Author `json:"author"`
	Text      string `json:"text"`
	IsPending bool   `json:"isPending"`
	// Timestamp is set once the entry is final.
	Timestamp string `json:"timestamp,omitempty"`
	// Intent is the classified intent of the user message an assistant entry answers.
	Intent string `json:"intent,omitempty"`
}
