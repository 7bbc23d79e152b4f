package analysis

// MaxImages is the most images one analysis request may carry.
const MaxImages = 4

// PerImageResult is the outcome of analyzing one image in a batch. Index is
// the sole identity linking a result back to its input image. Exactly one of
// Text/Error is meaningful, discriminated by OK.
type PerImageResult struct {
	Index int    `json:"index"`
	OK    bool   `json:"ok"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}
