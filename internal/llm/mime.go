package llm

import (
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DetectMIMEType returns the media type of an image. declared is trusted
// when it names a specific type; otherwise the content is sniffed.
func DetectMIMEType(declared string, data []byte) string {
	if declared != "" {
		if mediaType, _, err := mime.ParseMediaType(declared); err == nil && mediaType != "application/octet-stream" {
			return mediaType
		}
	}
	mediaType, _, _ := mime.ParseMediaType(mimetype.Detect(data).String())
	return mediaType
}

// IsImage reports whether mediaType is an image type.
func IsImage(mediaType string) bool {
	return strings.HasPrefix(mediaType, "image/")
}
