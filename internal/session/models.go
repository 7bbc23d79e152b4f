package session

import (
	"time"

	"github.com/guyettinger/gle-vision-chat/internal/analysis"
)

// Role discriminates transcript entries.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ResultEntry pairs a per-image result with the image it answers, so the
// transcript can render the image next to its answer.
type ResultEntry struct {
	analysis.PerImageResult
	Image string `json:"image"`
}

// Message is one transcript entry. User messages carry Question and Images;
// assistant messages carry Results and the Pending flag. CreatedAt doubles
// as the correlation key between a pending assistant message and the
// submission that created it.
type Message struct {
	ID        string        `json:"id"`
	Role      Role          `json:"role"`
	Question  string        `json:"question,omitempty"`
	Images    []string      `json:"images,omitempty"`
	Results   []ResultEntry `json:"results,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	Pending   bool          `json:"pending,omitempty"`
}
