package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guyettinger/gle-vision-chat/internal/vision"
)

// mockModel returns a canned output or error and records invocations.
type mockModel struct {
	output *vision.BatchOutput
	err    error
	calls  int
}

func (m *mockModel) AnalyzeBatch(ctx context.Context, question string, images []string) (*vision.BatchOutput, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.output, nil
}

func TestAnalyze_CompleteResponse(t *testing.T) {
	model := &mockModel{output: &vision.BatchOutput{Results: []vision.IndexedAnswer{
		{Index: 0, Text: "3 apples"},
		{Index: 1, Text: "2 pears"},
	}}}
	svc := NewService(model)

	results := svc.Analyze(context.Background(), "count objects", []string{"imgA", "imgB"})

	require.Len(t, results, 2)
	assert.Equal(t, PerImageResult{Index: 0, OK: true, Text: "3 apples"}, results[0])
	assert.Equal(t, PerImageResult{Index: 1, OK: true, Text: "2 pears"}, results[1])
	assert.Equal(t, 1, model.calls)
}

func TestAnalyze_MissingIndicesBecomePerImageFailures(t *testing.T) {
	model := &mockModel{output: &vision.BatchOutput{Results: []vision.IndexedAnswer{
		{Index: 1, Text: "A"},
	}}}
	svc := NewService(model)

	results := svc.Analyze(context.Background(), "q", []string{"a", "b", "c"})

	require.Len(t, results, 3)
	assert.Equal(t, PerImageResult{Index: 0, OK: false, Error: missingResultMessage}, results[0])
	assert.Equal(t, PerImageResult{Index: 1, OK: true, Text: "A"}, results[1])
	assert.Equal(t, PerImageResult{Index: 2, OK: false, Error: missingResultMessage}, results[2])
}

func TestAnalyze_OutOfOrderEntriesResolveByIndex(t *testing.T) {
	model := &mockModel{output: &vision.BatchOutput{Results: []vision.IndexedAnswer{
		{Index: 2, Text: "third"},
		{Index: 0, Text: "first"},
		{Index: 1, Text: "second"},
	}}}
	svc := NewService(model)

	results := svc.Analyze(context.Background(), "q", []string{"a", "b", "c"})

	require.Len(t, results, 3)
	assert.Equal(t, "first", results[0].Text)
	assert.Equal(t, "second", results[1].Text)
	assert.Equal(t, "third", results[2].Text)
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.True(t, r.OK)
	}
}

func TestAnalyze_DuplicateIndicesFirstEntryWins(t *testing.T) {
	model := &mockModel{output: &vision.BatchOutput{Results: []vision.IndexedAnswer{
		{Index: 0, Text: "kept"},
		{Index: 0, Text: "ignored"},
	}}}
	svc := NewService(model)

	results := svc.Analyze(context.Background(), "q", []string{"a"})

	require.Len(t, results, 1)
	assert.Equal(t, PerImageResult{Index: 0, OK: true, Text: "kept"}, results[0])
}

func TestAnalyze_OutOfRangeIndicesAreIgnored(t *testing.T) {
	model := &mockModel{output: &vision.BatchOutput{Results: []vision.IndexedAnswer{
		{Index: 5, Text: "nonsense"},
		{Index: -1, Text: "more nonsense"},
		{Index: 0, Text: "real"},
	}}}
	svc := NewService(model)

	results := svc.Analyze(context.Background(), "q", []string{"a", "b"})

	require.Len(t, results, 2)
	assert.Equal(t, PerImageResult{Index: 0, OK: true, Text: "real"}, results[0])
	assert.Equal(t, PerImageResult{Index: 1, OK: false, Error: missingResultMessage}, results[1])
}

func TestAnalyze_ModelFailureFallsBackForWholeBatch(t *testing.T) {
	model := &mockModel{err: errors.New("quota exceeded")}
	svc := NewService(model)

	results := svc.Analyze(context.Background(), "q", []string{"a", "b"})

	require.Len(t, results, 2)
	assert.Equal(t, PerImageResult{Index: 0, OK: false, Error: "quota exceeded"}, results[0])
	assert.Equal(t, PerImageResult{Index: 1, OK: false, Error: "quota exceeded"}, results[1])
}

// blankError has textual representation but no usable message.
type blankError struct{}

func (blankError) Error() string { return "   " }

func TestAnalyze_FailureWithoutMessageUsesGenericFallback(t *testing.T) {
	model := &mockModel{err: blankError{}}
	svc := NewService(model)

	results := svc.Analyze(context.Background(), "q", []string{"a"})

	require.Len(t, results, 1)
	assert.False(t, results[0].OK)
	assert.Equal(t, genericFailureMessage, results[0].Error)
}

func TestAnalyze_CompletenessAcrossBatchSizes(t *testing.T) {
	// Model answers nothing; the output must still cover every index once
	for n := 1; n <= MaxImages; n++ {
		model := &mockModel{output: &vision.BatchOutput{}}
		svc := NewService(model)

		images := make([]string, n)
		results := svc.Analyze(context.Background(), "q", images)

		require.Len(t, results, n)
		seen := map[int]bool{}
		for _, r := range results {
			assert.False(t, seen[r.Index], "duplicate index %d", r.Index)
			seen[r.Index] = true
			assert.GreaterOrEqual(t, r.Index, 0)
			assert.Less(t, r.Index, n)
		}
	}
}
