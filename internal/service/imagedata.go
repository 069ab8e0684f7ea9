package service

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DecodeBase64Image decodes the image field of a detect request. A data URL
// prefix such as "data:image/png;base64," is dropped by taking the segment
// after the first comma. Whitespace is ignored and padding is optional.
func DecodeBase64Image(encoded string) ([]byte, error) {
	if strings.Contains(encoded, ",") {
		encoded = strings.Split(encoded, ",")[1]
	}

	encoded = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, encoded)

	if encoded == "" {
		return nil, ErrNoImage
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		var rawErr error
		if data, rawErr = base64.RawStdEncoding.DecodeString(encoded); rawErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
	}
	return data, nil
}
