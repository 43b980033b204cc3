package generation

import (
	"encoding/base64"

	"github.com/thumbfast/server/internal/module/catalog"
)

// GenerateRequest is the JSON body of POST /generate.
type GenerateRequest struct {
	Prompt            string   `json:"prompt"`
	PersonImages      []string `json:"personImages"`
	InspirationImages []string `json:"inspirationImages"`
	ExtraImages       []string `json:"extraImages"`
	Model             string   `json:"model"`
	Modes             []string `json:"modes"`
	Grid              *int     `json:"grid"`
	Blend             bool     `json:"blend"`
	Count             *float64 `json:"count"`
}

// ToRequest converts the body into a service request. Absent grid and count
// default to 1; absent modes stay nil so the service applies its default.
func (d *GenerateRequest) ToRequest() *Request {
	req := &Request{
		Prompt: d.Prompt,
		Images: ImageSet{
			Persons:     d.PersonImages,
			Inspiration: d.InspirationImages,
			Extras:      d.ExtraImages,
		},
		Layout:       1,
		Blend:        d.Blend,
		VariantCount: 1,
		Model:        d.Model,
	}
	if d.Modes != nil {
		req.Modes = make([]catalog.Mode, len(d.Modes))
		for i, m := range d.Modes {
			req.Modes[i] = catalog.Mode(m)
		}
	}
	if d.Grid != nil {
		req.Layout = *d.Grid
	}
	if d.Count != nil {
		req.VariantCount = *d.Count
	}
	return req
}

// ImageDTO is an image on the wire.
type ImageDTO struct {
	Data      string `json:"data"`
	MediaType string `json:"mediaType"`
}

// GenerateResponse is the JSON body returned by POST /generate.
type GenerateResponse struct {
	Images []ImageDTO `json:"images"`
	Model  string     `json:"model"`
}

// NewGenerateResponse encodes result for the wire.
func NewGenerateResponse(result *Result) *GenerateResponse {
	images := make([]ImageDTO, len(result.Images))
	for i, img := range result.Images {
		images[i] = ImageDTO{
			Data:      base64.StdEncoding.EncodeToString(img.Data),
			MediaType: img.MediaType,
		}
	}
	return &GenerateResponse{Images: images, Model: result.Model}
}

// OptionsResponse lists the choices a client can offer.
type OptionsResponse struct {
	Modes        []catalog.ModeOption   `json:"modes"`
	Grids        []catalog.LayoutOption `json:"grids"`
	Models       []catalog.Model        `json:"models"`
	DefaultModel string                 `json:"defaultModel"`
	MaxCount     int                    `json:"maxCount"`
}
