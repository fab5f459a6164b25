package prompt

import (
	"fmt"
	"strings"

	"github.com/DreamCats/lexrag/internal/retrieval"
)

// NoContext is the context text used when nothing was retrieved
const NoContext = "No relevant legal documents found."

// DefaultContextChars bounds how much of each passage goes into the prompt
const DefaultContextChars = 500

// Role identifies who said a conversation turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Label is the speaker name used in rendered history
func (r Role) Label() string {
	if r == RoleAssistant {
		return "Assistant"
	}
	return "User"
}

// Turn is one message of conversation history
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// BuildContext renders one block per result, in result order, separated by
// a blank line. Content longer than maxChars characters is cut and marked
// with "...".
func BuildContext(results []retrieval.Result, maxChars int) string {
	if len(results) == 0 {
		return NoContext
	}
	if maxChars <= 0 {
		maxChars = DefaultContextChars
	}

	blocks := make([]string, len(results))
	for i, r := range results {
		md := r.Metadata
		year := md.Year
		if year == "" {
			year = "N/A"
		}
		blocks[i] = fmt.Sprintf("Document %d:\nTitle: %s\nYear: %s\nSection: %s\nStatus: %s\nContent: %s",
			i+1, md.Title(), year, md.Section(), md.Status(), Truncate(r.Content, maxChars))
	}
	return strings.Join(blocks, "\n\n")
}

// Truncate shortens s to at most n characters, appending "..." if it cut anything
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i] + "..."
		}
		count++
	}
	return s
}
