package validation

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"unicode/utf8"
)

var ErrInvalidKey = errors.New("invalid object key")

// maxKeyLength matches the S3 limit.
const maxKeyLength = 1024

// ValidateKey accepts relative slash-separated keys without empty, "." or
// ".." segments.
func ValidateKey(key string) error {
	if err := checkKey(strings.TrimSuffix(key, "/")); err != nil {
		return err
	}
	if strings.HasSuffix(key, "/") {
		return fmt.Errorf("%w: %q names a directory", ErrInvalidKey, key)
	}
	return nil
}

// ValidatePrefix is ValidateKey allowing one trailing slash.
func ValidatePrefix(prefix string) error {
	return checkKey(strings.TrimSuffix(prefix, "/"))
}

func checkKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	case len(key) > maxKeyLength:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidKey, maxKeyLength)
	case !utf8.ValidString(key):
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidKey)
	case strings.HasPrefix(key, "/"):
		return fmt.Errorf("%w: %q is absolute", ErrInvalidKey, key)
	}
	for _, r := range key {
		if r < 32 || r == 127 || r == '\\' {
			return fmt.Errorf("%w: %q contains a forbidden character", ErrInvalidKey, key)
		}
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("%w: %q has an empty or relative segment", ErrInvalidKey, key)
		}
	}
	return nil
}

// ContentDisposition returns a header value naming the download after the
// key's last segment.
func ContentDisposition(key string, inline bool) string {
	name := sanitizeFilename(path.Base(key))
	disposition := "attachment"
	if inline {
		disposition = "inline"
	}
	return fmt.Sprintf("%s; filename=%q", disposition, name)
}

func sanitizeFilename(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r < 32 || r == 127, r == '"', r == '\\', r == '/', r == ':':
			sb.WriteRune('_')
		default:
			sb.WriteRune(r)
		}
	}
	result := strings.TrimSpace(sb.String())
	if strings.Trim(result, "_.") == "" {
		return "file"
	}
	return result
}
