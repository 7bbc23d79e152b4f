package vision

import "context"

// Model is the vision-capable model collaborator. Implementations send one
// multimodal request (question text plus every image) and return the model's
// structured per-image answers. The output is untrusted: entries may be
// missing, duplicated, or carry indices outside the input range.
type Model interface {
	AnalyzeBatch(ctx context.Context, question string, images []string) (*BatchOutput, error)
}
