// Package generation turns a generation request into images by fanning out
// independent calls to the remote image model and keeping what comes back.
package generation

import (
	"context"
	"strings"

	"github.com/thumbfast/server/internal/module/catalog"
)

// Request is a validated-on-use generation request.
type Request struct {
	Prompt string
	Images ImageSet
	// Modes is nil when the caller did not choose; an empty non-nil slice is
	// an explicit empty selection and is rejected.
	Modes  []catalog.Mode
	Layout int
	Blend  bool
	// VariantCount is the raw caller value; see ClampVariantCount.
	VariantCount float64
	Model        string
}

// ImageSet groups attached images by role. Each entry is raw base64 or a
// data URL.
type ImageSet struct {
	Persons     []string
	Inspiration []string
	Extras      []string
}

// Image is binary image data with its declared media type.
type Image struct {
	Data      []byte
	MediaType string
}

// IsImage reports whether img carries data declared as an image type.
func (img Image) IsImage() bool {
	return len(img.Data) > 0 && strings.HasPrefix(strings.ToLower(img.MediaType), "image/")
}

// Part is one element of the message sent to the model: text when Data is
// nil, an inline attachment otherwise.
type Part struct {
	Text      string
	Data      []byte
	MediaType string
}

// TextPart returns a text part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// ImageClient issues a single call against the remote model and returns
// every attachment of the response, whatever its type.
type ImageClient interface {
	Generate(ctx context.Context, model string, parts []Part) ([]Image, error)
}

// Result is the outcome of a fan-out together with the effective settings
// that produced it.
type Result struct {
	Images []Image
	Model  string
	Modes  []catalog.Mode
	Layout int
	Blend  bool

	Requested int
	Succeeded int
	Failed    int
	// Dropped counts attachments discarded because they were not images.
	Dropped int
}

// Empty reports whether nothing was produced.
func (r *Result) Empty() bool {
	return len(r.Images) == 0
}
