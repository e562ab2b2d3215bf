// Package extract defines the shared contracts between the page decoder, the
// recognition and inference layers, and the router that drives them.
package extract

import "context"

// RenderFunc rasterizes a page to an image on disk. Rendering is deferred:
// the decoder hands every page a closure and only pages that escalate in
// image mode, or scan pages needing recognition, ever invoke it. The result
// is cached; repeated calls return the same handle.
type RenderFunc func(ctx context.Context) (*ImageHandle, error)

// Page is one ordered page of a decoded document.
type Page struct {
	Number int    // 1-based
	Text   string // embedded text layer, may be empty
	Render RenderFunc
}

// ImageHandle points at a rendered page image in the work directory.
type ImageHandle struct {
	Path string
}

// RecognitionResult is local OCR output with its mean word confidence in
// [0,1].
type RecognitionResult struct {
	Text       string
	Confidence float64
}

// Recognizer is the local recognition layer.
type Recognizer interface {
	Recognize(ctx context.Context, img *ImageHandle) (RecognitionResult, error)
}

// InferenceRequest asks the external model for a subset of fields from
// either a page image or a block of text. Exactly one of Image and Text is
// set.
type InferenceRequest struct {
	Fields []string
	Image  *ImageHandle
	Text   string
}

// InferenceResult carries the model's field map plus token usage for cost
// accounting.
type InferenceResult struct {
	Fields       map[string]any
	InputTokens  int
	OutputTokens int
}

// InferenceAdapter is the external inference layer. Implementations validate
// the response against the request's field schema before returning it.
type InferenceAdapter interface {
	Extract(ctx context.Context, req InferenceRequest) (InferenceResult, error)
}

// PageDecoder turns a document into ordered pages with deferred rendering.
type PageDecoder interface {
	Decode(ctx context.Context, path string, workDir string) ([]Page, error)
}
