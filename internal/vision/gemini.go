package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	apperrors "github.com/guyettinger/gle-vision-chat/internal/errors"
)

const batchInstruction = "Analyze each of the attached images and answer the question for every image independently. " +
	"Return a JSON object with a \"results\" array containing exactly one entry per image, " +
	"where \"index\" is the 0-based position of the image in the order it was attached " +
	"and \"text\" is the answer for that image."

// batchSchema constrains the model to the {results:[{index,text}]} shape.
var batchSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"results": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"index": {Type: genai.TypeInteger},
					"text":  {Type: genai.TypeString},
				},
				Required: []string{"index", "text"},
			},
		},
	},
	Required: []string{"results"},
}

// GeminiModel calls the Gemini API with structured (schema-constrained) output.
type GeminiModel struct {
	client *genai.Client
	model  string
}

// NewGeminiModel creates a Gemini-backed vision model.
func NewGeminiModel(ctx context.Context, apiKey, model string) (*GeminiModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("apiKey is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("model is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiModel{client: client, model: model}, nil
}

// AnalyzeBatch sends one multimodal request: the question with the batch
// instruction, followed by every image as an inline part in input order.
func (m *GeminiModel) AnalyzeBatch(ctx context.Context, question string, images []string) (*BatchOutput, error) {
	parts := make([]*genai.Part, 0, len(images)+1)
	parts = append(parts, genai.NewPartFromText(question+"\n\n"+batchInstruction))
	for _, img := range images {
		parts = append(parts, imagePart(img))
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   batchSchema,
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.model, contents, cfg)
	if err != nil {
		// Keep the API's own message visible; the analysis layer surfaces it
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	return parseBatchOutput(resp.Text())
}

// parseBatchOutput validates the model's raw JSON text against the expected
// shape. The schema constraint is advisory only, the response is re-parsed
// here before anything downstream trusts it.
func parseBatchOutput(raw string) (*BatchOutput, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, apperrors.NewModelError("The model returned an empty response", nil)
	}

	var out BatchOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, apperrors.NewModelError("The model response did not match the expected format", err)
	}
	return &out, nil
}

// imagePart converts an opaque image payload into an inline data part.
// Data URIs carry their own mime type; anything else is decoded (or taken
// as raw bytes) and content-sniffed.
func imagePart(payload string) *genai.Part {
	data, mimeType := decodeImagePayload(payload)
	return &genai.Part{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}}
}

func decodeImagePayload(payload string) ([]byte, string) {
	if rest, ok := strings.CutPrefix(payload, "data:"); ok {
		if header, body, found := strings.Cut(rest, ","); found {
			mimeType := strings.TrimSuffix(header, ";base64")
			if data, err := base64.StdEncoding.DecodeString(body); err == nil {
				if mimeType == "" {
					mimeType = http.DetectContentType(data)
				}
				return data, mimeType
			}
		}
	}

	// Bare base64 without a data-URI wrapper
	if data, err := base64.StdEncoding.DecodeString(payload); err == nil {
		return data, http.DetectContentType(data)
	}

	data := []byte(payload)
	return data, http.DetectContentType(data)
}
