package analysis

import (
	"context"

	"github.com/sirupsen/logrus"

	apperrors "github.com/guyettinger/gle-vision-chat/internal/errors"
	"github.com/guyettinger/gle-vision-chat/internal/logger"
	"github.com/guyettinger/gle-vision-chat/internal/vision"
)

const (
	missingResultMessage  = "No response received for this image."
	genericFailureMessage = "Failed to analyze images. Please try again."
)

// Service runs one batch analysis per call. It is stateless; every
// invocation is independent.
type Service struct {
	model vision.Model
}

// NewService creates a batch analysis service backed by the given model.
func NewService(model vision.Model) *Service {
	return &Service{model: model}
}

// Analyze asks the model one question about every image and returns exactly
// one result per input index, in index order. This call never fails: a model
// or transport error is converted into a failure result for every image, so
// callers always receive len(images) results.
//
// Callers are expected to have validated the question and image count; the
// service does not re-check them.
func (s *Service) Analyze(ctx context.Context, question string, images []string) []PerImageResult {
	out, err := s.model.AnalyzeBatch(ctx, question, images)
	if err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"image_count": len(images),
		}).Error("Batch analysis failed")
		return failAll(len(images), failureMessage(err))
	}

	return reconcile(out, len(images))
}

// reconcile maps the model's untrusted output back onto the input index
// range. Lookup is by index value, not position: the model may answer out of
// order, duplicate an index (first entry wins), or skip one entirely.
func reconcile(out *vision.BatchOutput, n int) []PerImageResult {
	results := make([]PerImageResult, 0, n)
	for i := 0; i < n; i++ {
		entry, found := findByIndex(out.Results, i)
		if !found {
			results = append(results, PerImageResult{
				Index: i,
				OK:    false,
				Error: missingResultMessage,
			})
			continue
		}
		results = append(results, PerImageResult{
			Index: i,
			OK:    true,
			Text:  entry.Text,
		})
	}
	return results
}

func findByIndex(answers []vision.IndexedAnswer, index int) (vision.IndexedAnswer, bool) {
	for _, a := range answers {
		if a.Index == index {
			return a, true
		}
	}
	return vision.IndexedAnswer{}, false
}

// failAll produces the full-length fallback for a model-level failure.
func failAll(n int, message string) []PerImageResult {
	results := make([]PerImageResult, 0, n)
	for i := 0; i < n; i++ {
		results = append(results, PerImageResult{
			Index: i,
			OK:    false,
			Error: message,
		})
	}
	return results
}

// failureMessage derives the user-visible text for a failed batch. Failure
// values from the model transport have no guaranteed shape, so this checks
// for usable text rather than assuming a concrete type.
func failureMessage(err error) string {
	if msg := apperrors.UserFacingMessage(err); msg != "" {
		return msg
	}
	return genericFailureMessage
}
