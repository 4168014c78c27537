// Package validation checks what producers send before it reaches storage.
package validation

import (
	"errors"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrDisallowedFileType is returned when an input is not something a job
// handler can process.
var ErrDisallowedFileType = errors.New("file type not allowed")

// allowedInputTypes holds MIME types as mimetype reports them, without
// parameters.
var allowedInputTypes = toSet(
	// Images
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"image/tiff",
	"image/bmp",
	// Documents
	"application/pdf",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"application/msword",
	"application/vnd.ms-excel",
	"application/vnd.ms-powerpoint",
	"application/vnd.oasis.opendocument.text",
	"application/vnd.oasis.opendocument.spreadsheet",
	"application/vnd.oasis.opendocument.presentation",
	"text/rtf",
	// Video
	"video/mp4",
	"video/webm",
	"video/quicktime",
	"video/x-matroska",
	"video/x-msvideo",
	// Audio
	"audio/mpeg",
	"audio/ogg",
	"application/ogg",
	"audio/wav",
	"audio/x-wav",
	"audio/flac",
	"audio/aac",
	"audio/mp4",
	"audio/x-m4a",
)

func toSet(items ...string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[it] = true
	}
	return set
}

// DetectInputType sniffs data and reports its MIME type. The error is
// ErrDisallowedFileType when no handler accepts that type.
func DetectInputType(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrDisallowedFileType
	}
	mtype := mimetype.Detect(data)
	for m := mtype; m != nil; m = m.Parent() {
		if allowedInputTypes[baseType(m.String())] {
			return mtype.String(), nil
		}
	}
	return mtype.String(), ErrDisallowedFileType
}

func baseType(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.TrimSpace(mime)
}
