package service

import (
	"encoding/base64"
	"errors"
	"testing"
)

func TestDecodeBase64Image(t *testing.T) {
	payload := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00}
	std := base64.StdEncoding.EncodeToString(payload)
	raw := base64.RawStdEncoding.EncodeToString(payload)

	tests := []struct {
		name  string
		input string
	}{
		{"plain", std},
		{"data url", "data:image/jpeg;base64," + std},
		{"unpadded", raw},
		{"wrapped lines", std[:4] + "\n" + std[4:]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeBase64Image(tt.input)
			if err != nil {
				t.Fatalf("DecodeBase64Image(%q) error: %v", tt.input, err)
			}
			if string(got) != string(payload) {
				t.Errorf("DecodeBase64Image(%q) = %v, expected %v", tt.input, got, payload)
			}
		})
	}
}

func TestDecodeBase64Image_Errors(t *testing.T) {
	if _, err := DecodeBase64Image(""); !errors.Is(err, ErrNoImage) {
		t.Errorf("empty input error = %v, expected ErrNoImage", err)
	}
	if _, err := DecodeBase64Image("data:image/png;base64,"); !errors.Is(err, ErrNoImage) {
		t.Errorf("empty data url error = %v, expected ErrNoImage", err)
	}
	if _, err := DecodeBase64Image("not*base64!"); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("garbage input error = %v, expected ErrInvalidImage", err)
	}
}
