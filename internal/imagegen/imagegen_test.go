package imagegen

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"tomgalvin.uk/sketchprint/internal/render"
)

func aPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// A PNG signature and IHDR chunk declaring an 8-bit RGBA image, with no
// pixel data behind it
func aPNGHeader(width, height uint32) []byte {
	ihdr := make([]byte, 17)
	copy(ihdr, "IHDR")
	binary.BigEndian.PutUint32(ihdr[4:], width)
	binary.BigEndian.PutUint32(ihdr[8:], height)
	ihdr[12], ihdr[13] = 8, 6

	b := []byte("\x89PNG\r\n\x1a\n")
	b = binary.BigEndian.AppendUint32(b, 13)
	b = append(b, ihdr...)
	return binary.BigEndian.AppendUint32(b, crc32.ChecksumIEEE(ihdr))
}

func TestURL(t *testing.T) {
	c := NewClient("https://images.example/prompt/{prompt}?width=384", "line art")
	expected := "https://images.example/prompt/a%20cat%2Fdog%2C%20line%20art?width=384"
	if got := c.URL("  a cat/dog "); got != expected {
		t.Errorf("Expected %s, got %s", expected, got)
	}

	c.Style = ""
	if got := c.URL("a cat"); got != "https://images.example/prompt/a%20cat?width=384" {
		t.Errorf("Unexpected URL without a style: %s", got)
	}
}

func TestGenerate(t *testing.T) {
	body := aPNG(t, 40, 30)
	var requested string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.EscapedPath()
		w.Header().Set("Content-Type", "image/png")
		w.Write(body)
	}))
	defer server.Close()

	c := NewClient(server.URL+"/prompt/{prompt}", "")
	img, err := c.Generate(context.Background(), "a lighthouse")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 30 {
		t.Errorf("Unexpected bounds %v", img.Bounds())
	}
	if requested != "/prompt/a%20lighthouse" {
		t.Errorf("Unexpected request path %s", requested)
	}
}

func TestGenerateFailures(t *testing.T) {
	tests := map[string]struct {
		handler  http.HandlerFunc
		expected error
	}{
		"server error": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "overloaded", http.StatusServiceUnavailable)
			},
			expected: ErrCaptureFailed,
		},
		"huge image": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write(aPNGHeader(60000, 60000))
			},
			expected: render.ErrImageTooLarge,
		},
		"not an image": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>rate limited</html>"))
			},
			expected: ErrDecodeFailed,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(test.handler)
			defer server.Close()

			_, err := NewClient(server.URL+"/{prompt}", "").Generate(context.Background(), "cat")
			if !errors.Is(err, test.expected) {
				t.Errorf("Expected %v, got %v", test.expected, err)
			}
		})
	}
}

func TestGenerateUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(url+"/{prompt}", "").Generate(context.Background(), "cat")
	if !errors.Is(err, ErrCaptureFailed) {
		t.Errorf("Expected ErrCaptureFailed, got %v", err)
	}
}

func TestGenerateInvalidInput(t *testing.T) {
	if _, err := NewClient("http://localhost/{prompt}", "").Generate(context.Background(), "  "); err == nil {
		t.Errorf("Expected an error for an empty prompt")
	}
	if _, err := NewClient("", "").Generate(context.Background(), "cat"); !errors.Is(err, ErrCaptureFailed) {
		t.Errorf("Expected ErrCaptureFailed without a service, got %v", err)
	}
}
