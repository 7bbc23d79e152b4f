package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/guyettinger/gle-vision-chat/internal/analysis"
	apperrors "github.com/guyettinger/gle-vision-chat/internal/errors"
)

const (
	placeholderText      = "Analyzing..."
	unexpectedServerText = "Unexpected server error"

	msgNoQuestion     = "Please provide a question."
	msgNoImages       = "Please upload at least one image."
	msgTooManyImages  = "You can upload up to 4 images."
	msgGenericFailure = "Failed to analyze images. Please try again."
)

// ErrSubmissionInFlight is returned when Submit is called while a previous
// submission has not resolved yet. Concurrent submits are rejected, not queued.
var ErrSubmissionInFlight = errors.New("a submission is already in flight")

// Analyzer is the collaborator a session submits through. Unlike the batch
// analysis service itself, calls through an Analyzer can fail at the
// transport level (e.g. the HTTP client), which is what drives a submission
// into the failed state.
type Analyzer interface {
	Analyze(ctx context.Context, question string, images []string) ([]analysis.PerImageResult, error)
}

// Session owns one conversation: the composer (draft question plus staged
// images) and the append-only transcript. The transcript only ever changes
// two ways: a submission appends a user/pending-assistant pair, and the
// pending assistant entry is later patched in place. Entries are never
// removed or reordered.
//
// Each Session carries its own in-flight latch, so independent sessions
// never interfere with each other.
type Session struct {
	mu       sync.Mutex
	analyzer Analyzer

	transcript []Message
	draft      string
	staged     []string
	submitting bool
	banner     string

	now func() time.Time
}

// New creates an empty session that submits through the given analyzer.
func New(analyzer Analyzer) *Session {
	return &Session{
		analyzer: analyzer,
		now:      time.Now,
	}
}

// SetQuestion replaces the composer's draft question.
func (s *Session) SetQuestion(question string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = question
}

// Question returns the composer's draft question.
func (s *Session) Question() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// AttachImage stages an image payload for the next submission.
func (s *Session) AttachImage(image string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.staged) >= analysis.MaxImages {
		return apperrors.NewValidationError(msgTooManyImages, nil)
	}
	s.staged = append(s.staged, image)
	return nil
}

// ClearImages drops all staged images.
func (s *Session) ClearImages() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged = nil
}

// StagedImages returns a copy of the currently staged images.
func (s *Session) StagedImages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.staged...)
}

// Transcript returns a snapshot of the conversation so far.
func (s *Session) Transcript() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Err returns the session-level error banner, or "" when there is none.
func (s *Session) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.banner
}

// Submit sends the composer's current question and staged images for
// analysis. It appends the user message and a pending assistant placeholder
// immediately, then blocks until the analyzer resolves.
//
// On success the pending placeholder is patched with the real results and
// the composer is cleared. On a transport failure every pending entry is
// converted to a failed one, the error banner is set, and the composer is
// left intact so the submission can be retried as-is.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return ErrSubmissionInFlight
	}

	question := strings.TrimSpace(s.draft)
	if question == "" {
		s.mu.Unlock()
		return apperrors.NewValidationError(msgNoQuestion, nil)
	}
	if len(s.staged) == 0 {
		s.mu.Unlock()
		return apperrors.NewValidationError(msgNoImages, nil)
	}
	if len(s.staged) > analysis.MaxImages {
		s.mu.Unlock()
		return apperrors.NewValidationError(msgTooManyImages, nil)
	}

	images := append([]string(nil), s.staged...)
	createdAt := s.now()
	s.appendSubmission(question, images, createdAt)
	s.submitting = true
	s.banner = ""
	s.mu.Unlock()

	results, err := s.analyzer.Analyze(ctx, question, images)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false

	if err != nil {
		message := apperrors.UserFacingMessage(err)
		if message == "" {
			message = msgGenericFailure
		}
		s.failAllPending(message)
		s.banner = message
		return err
	}

	s.resolvePending(createdAt, images, results)
	s.draft = ""
	s.staged = nil
	return nil
}

// appendSubmission appends the user message and its pending assistant
// counterpart, sharing one creation timestamp as the correlation key.
// Caller must hold s.mu.
func (s *Session) appendSubmission(question string, images []string, createdAt time.Time) {
	placeholders := make([]ResultEntry, 0, len(images))
	for i, img := range images {
		placeholders = append(placeholders, ResultEntry{
			PerImageResult: analysis.PerImageResult{Index: i, OK: true, Text: placeholderText},
			Image:          img,
		})
	}

	s.transcript = append(s.transcript,
		Message{
			ID:        uuid.NewString(),
			Role:      RoleUser,
			Question:  question,
			Images:    images,
			CreatedAt: createdAt,
		},
		Message{
			ID:        uuid.NewString(),
			Role:      RoleAssistant,
			Results:   placeholders,
			CreatedAt: createdAt,
			Pending:   true,
		},
	)
}

// resolvePending patches the unique pending assistant message matching the
// given creation key. This is the only mutation the transcript supports
// besides appends; a second resolution for the same key finds no pending
// entry and is a no-op.
//
// Results are merged per image index by value lookup. The service guarantees
// a complete result set, but the lookup still tolerates an absent index and
// substitutes a failure entry for it. Caller must hold s.mu.
func (s *Session) resolvePending(createdAt time.Time, images []string, results []analysis.PerImageResult) {
	for i := range s.transcript {
		msg := &s.transcript[i]
		if !msg.Pending || !msg.CreatedAt.Equal(createdAt) {
			continue
		}

		merged := make([]ResultEntry, 0, len(images))
		for idx, img := range images {
			entry := ResultEntry{
				PerImageResult: analysis.PerImageResult{Index: idx, OK: false, Error: unexpectedServerText},
				Image:          img,
			}
			for _, r := range results {
				if r.Index == idx {
					entry.PerImageResult = r
					break
				}
			}
			merged = append(merged, entry)
		}

		msg.Results = merged
		msg.Pending = false
		return
	}
}

// failAllPending converts every pending assistant message into a failed one
// carrying the given message. Caller must hold s.mu.
func (s *Session) failAllPending(message string) {
	for i := range s.transcript {
		msg := &s.transcript[i]
		if !msg.Pending {
			continue
		}
		for j := range msg.Results {
			msg.Results[j].PerImageResult = analysis.PerImageResult{
				Index: msg.Results[j].Index,
				OK:    false,
				Error: message,
			}
		}
		msg.Pending = false
	}
}
