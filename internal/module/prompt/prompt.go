// Package prompt renders a generation request into the instruction text sent
// to the image model. Everything here is pure: same request, same string.
package prompt

import (
	"fmt"
	"strings"

	"github.com/thumbfast/server/internal/module/catalog"
)

// Request is the part of a generation request the composer needs.
type Request struct {
	UserPrompt     string
	Modes          []catalog.Mode
	HasPersons     bool
	HasInspiration bool
	HasExtras      bool
	Layout         int
	Blend          bool
	// Explicit adds the finished-image constraints some models need.
	Explicit bool
}

var styleText = map[catalog.Mode]string{
	catalog.ModeThumbnail: "YouTube thumbnail, 16:9 landscape, bold text, click-worthy, cinematic lighting, high contrast",
	catalog.ModeIcon:      "App icon, square 1:1, minimal, recognizable at small sizes, no text unless requested",
	catalog.ModeLogo:      "Logo design, clean vector-style, scalable, professional, transparent-friendly",
	catalog.ModeCartoon:   "Cartoon/illustrated style, exaggerated features, vivid colors, comic-like",
	catalog.ModeAvatar:    "Profile picture, centered face/subject, square 1:1, clean background",
	catalog.ModeSocial:    "Social media post, square 1:1, engaging, scroll-stopping",
	catalog.ModeBanner:    "Wide banner, 3:1 ratio, horizontal composition, clean with space for overlay",
}

// reinforcements is walked in enumeration order.
var reinforcements = []struct {
	mode catalog.Mode
	text string
}{
	{catalog.ModeThumbnail, "The image MUST be in 16:9 landscape format (wider than tall), resembling a real YouTube thumbnail with photorealistic quality, dramatic lighting, and vivid saturated colors."},
	{catalog.ModeIcon, "The icon must be extremely simple, with a single recognizable symbol, solid colors, and no fine details that would be lost at 64x64 pixels."},
	{catalog.ModeLogo, "The logo must be crisp, centered, with clean geometric shapes and minimal detail. Think professional brand identity, not clip-art."},
	{catalog.ModeCartoon, "The cartoon style must have clean outlines, cel-shading, vibrant flat colors, and exaggerated proportions like a professional illustration."},
}

var layoutText = map[int]string{
	2: "Compose the image as a side-by-side split (2 panels).",
	3: "Compose the image as a triptych (3 panels).",
	4: "Compose the image as a 2x2 grid (4 panels/quadrants).",
}

const (
	introFormat = "You are an expert visual designer. Generate an image with the following style: %s."

	singleImageConstraint = "IMPORTANT: You MUST produce a single, high-quality, finished image. Do NOT return text descriptions, sketches, or placeholder graphics. Output a fully rendered, production-ready image."

	contextHeader     = "\nContext about the attached images:"
	personsClause     = "- PERSONS: Photos of real people provided. You MUST include these exact faces/people prominently in the image. Preserve their likeness accurately."
	inspirationClause = "- INSPIRATION: A reference image provided. Match its style, composition, color grading, and layout. Do NOT copy it literally, use it as a visual direction guide."
	extrasClause      = "- EXTRA IMAGES: Additional visual assets provided. Integrate them naturally into the composition."

	panelCountFormat = "The final output MUST be a single image divided into exactly %d distinct visual sections/panels. Do NOT generate %d separate images."
	blendClause      = "The panels should blend smoothly into each other with seamless transitions and gradients between sections, not hard borders."

	finalReminder = "\nREMINDER: Output exactly ONE finished image. No text-only responses. No wireframes. A real, rendered, high-quality image."
)

var requirements = []string{
	"\nMandatory requirements:",
	"- Colors: vibrant, saturated, eye-catching",
	"- Composition: bold, dramatic, with a clear focal point and visual hierarchy",
	"- If text is requested, make it large, bold, with strong contrast against the background (use outlines, shadows, or colored backgrounds behind text)",
	"- Generate a COMPLETE new image, not just overlays or edits",
}

// Compose renders req into the instruction text. It does not validate: an
// empty mode list or an out-of-range layout still yields a usable string.
func Compose(req Request) string {
	var parts []string

	descriptions := make([]string, 0, len(req.Modes))
	for _, m := range req.Modes {
		if text, ok := styleText[m]; ok {
			descriptions = append(descriptions, text)
		}
	}
	parts = append(parts, fmt.Sprintf(introFormat, strings.Join(descriptions, ". ")))

	if req.Explicit {
		parts = append(parts, singleImageConstraint)
		for _, r := range reinforcements {
			if hasMode(req.Modes, r.mode) {
				parts = append(parts, r.text)
			}
		}
	}

	parts = append(parts, "\nUser request: "+strings.TrimSpace(req.UserPrompt))

	if req.HasPersons || req.HasInspiration || req.HasExtras {
		parts = append(parts, contextHeader)
		if req.HasPersons {
			parts = append(parts, personsClause)
		}
		if req.HasInspiration {
			parts = append(parts, inspirationClause)
		}
		if req.HasExtras {
			parts = append(parts, extrasClause)
		}
	}

	if text, ok := layoutText[req.Layout]; ok {
		parts = append(parts, "\nLayout: "+text)
		if req.Explicit {
			parts = append(parts, fmt.Sprintf(panelCountFormat, req.Layout, req.Layout))
		}
		if req.Blend {
			parts = append(parts, blendClause)
		}
	}

	parts = append(parts, requirements...)

	if req.Explicit {
		parts = append(parts, finalReminder)
	}

	return strings.Join(parts, "\n")
}

// VariantNote is the per-call suffix that tells the model which of n
// variations it is producing. index is 1-based.
func VariantNote(index, n int) string {
	return fmt.Sprintf("\nThis is variation %d of %d. Make it visually distinct from other variations.", index, n)
}

func hasMode(modes []catalog.Mode, m catalog.Mode) bool {
	for _, x := range modes {
		if x == m {
			return true
		}
	}
	return false
}
