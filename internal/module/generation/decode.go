package generation

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

var errEmptyImage = errors.New("empty image payload")

// DecodeImage accepts raw base64 or a data URL and returns the bytes with
// their media type. The type comes from the data URL header when present,
// otherwise it is sniffed from the content.
func DecodeImage(encoded string) (Image, error) {
	payload := strings.TrimSpace(encoded)
	mediaType := ""

	if strings.HasPrefix(payload, "data:") {
		header, data, ok := strings.Cut(payload, ",")
		if !ok {
			return Image{}, errors.New("malformed data url")
		}
		header = strings.TrimPrefix(header, "data:")
		mediaType, _, _ = strings.Cut(header, ";")
		payload = data
	}

	if payload == "" {
		return Image{}, errEmptyImage
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some encoders drop the padding.
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return Image{}, err
		}
	}
	if len(data) == 0 {
		return Image{}, errEmptyImage
	}

	if mediaType == "" {
		mediaType = http.DetectContentType(data)
	}

	return Image{Data: data, MediaType: mediaType}, nil
}
