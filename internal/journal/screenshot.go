package journal

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Screenshot is an uploaded chart image held as a data URL.
type Screenshot struct {
	Name    string
	MIME    string
	DataURL string
}

// TooLargeMessage is shown when an upload exceeds maxBytes.
func TooLargeMessage(maxBytes int64) string {
	return fmt.Sprintf("Screenshot is too large (max %d MB).", maxBytes>>20)
}

// DecodeScreenshot sniffs the upload and wraps it in a data URL. Only image
// content is accepted regardless of the file extension.
func DecodeScreenshot(name string, data []byte, maxBytes int64) (*Screenshot, error) {
	if len(data) == 0 {
		return nil, &ValidationError{Field: "screenshot", Message: "Please upload a screenshot."}
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, &ValidationError{Field: "screenshot", Message: TooLargeMessage(maxBytes)}
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, &ValidationError{Field: "screenshot", Message: "Please upload an image file."}
	}
	mime := mt.String()
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return &Screenshot{
		Name:    name,
		MIME:    mime,
		DataURL: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data),
	}, nil
}
