package vision

// IndexedAnswer is one entry of the model's structured output. Index refers
// to the 0-based position of an image in the request.
type IndexedAnswer struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// BatchOutput is the schema the model is asked to produce.
type BatchOutput struct {
	Results []IndexedAnswer `json:"results"`
}
