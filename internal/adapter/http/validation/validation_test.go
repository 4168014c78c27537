package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	jpegMagic = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46, 0x00}
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	pdfMagic  = []byte("%PDF-1.7\n")
	oggMagic  = []byte{0x4F, 0x67, 0x67, 0x53, 0x00, 0x02}
	flacMagic = []byte{0x66, 0x4C, 0x61, 0x43}
	exeMagic  = []byte{0x4D, 0x5A, 0x90, 0x00, 0x03, 0x00, 0x00, 0x00}
)

func pad(magic []byte, size int) []byte {
	if len(magic) >= size {
		return magic
	}
	out := make([]byte, size)
	copy(out, magic)
	return out
}

func TestDetectInputType_Allowed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", pad(jpegMagic, 512), "image/jpeg"},
		{"png", pad(pngMagic, 512), "image/png"},
		{"pdf", pad(pdfMagic, 512), "application/pdf"},
		{"flac", pad(flacMagic, 512), "audio/flac"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mime, err := DetectInputType(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, mime)
		})
	}

	_, err := DetectInputType(pad(oggMagic, 512))
	assert.NoError(t, err)
}

func TestDetectInputType_Rejected(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"exe", pad(exeMagic, 512)},
		{"html", []byte("<!DOCTYPE html><html><body></body></html>")},
		{"php", []byte("<?php echo 'hello'; ?>")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DetectInputType(tt.data)
			assert.ErrorIs(t, err, ErrDisallowedFileType)
		})
	}
}

func TestValidateKey(t *testing.T) {
	valid := []string{"uploads/cat.jpg", "a", "jobs/1/output.json", "photos/été.png"}
	for _, k := range valid {
		assert.NoError(t, ValidateKey(k), k)
	}

	invalid := []string{"", "/abs", "a//b", "a/../b", "./a", "..", "dir/", "a\x00b", "a\\b", "a\nb", string([]byte{0xff})}
	for _, k := range invalid {
		assert.ErrorIs(t, ValidateKey(k), ErrInvalidKey, k)
	}
}

func TestValidatePrefix(t *testing.T) {
	assert.NoError(t, ValidatePrefix("jobs/1/"))
	assert.NoError(t, ValidatePrefix("jobs/1"))
	assert.ErrorIs(t, ValidatePrefix("/"), ErrInvalidKey)
	assert.ErrorIs(t, ValidatePrefix("jobs//"), ErrInvalidKey)
	assert.ErrorIs(t, ValidatePrefix("../jobs/"), ErrInvalidKey)
}

func TestContentDisposition(t *testing.T) {
	tests := []struct {
		key    string
		inline bool
		want   string
	}{
		{"jobs/1/video.webm", true, `inline; filename="video.webm"`},
		{"jobs/1/output.pdf", false, `attachment; filename="output.pdf"`},
		{"jobs/1/evil\"name\r\n.pdf", true, `inline; filename="evil_name__.pdf"`},
		{"jobs/1/___", true, `inline; filename="file"`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ContentDisposition(tt.key, tt.inline), tt.key)
	}
}
