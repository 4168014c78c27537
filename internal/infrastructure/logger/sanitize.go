package logger

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxBodyLength bounds how many bytes of a queue message SanitizeBody keeps.
const MaxBodyLength = 512

// SanitizeForLog escapes control characters in untrusted text such as object
// keys and job names, so it cannot start a new log line or drive the
// terminal. Printable Unicode is kept.
func SanitizeForLog(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		writeEscaped(&b, r)
	}
	return b.String()
}

// SanitizeBody renders a raw message body for a log line. Bytes that are not
// valid UTF-8 are written as hex and anything past MaxBodyLength is replaced
// by a count of the bytes left out.
func SanitizeBody(body []byte) string {
	shown := body
	if len(shown) > MaxBodyLength {
		shown = shown[:MaxBodyLength]
	}

	var b strings.Builder
	b.Grow(len(shown) + 24)
	for len(shown) > 0 {
		r, size := utf8.DecodeRune(shown)
		if r == utf8.RuneError && size <= 1 {
			fmt.Fprintf(&b, "\\x%02x", shown[0])
			shown = shown[1:]
			continue
		}
		writeEscaped(&b, r)
		shown = shown[size:]
	}
	if cut := len(body) - MaxBodyLength; cut > 0 {
		fmt.Fprintf(&b, "...(%d more bytes)", cut)
	}
	return b.String()
}

func writeEscaped(b *strings.Builder, r rune) {
	switch {
	case r == '\n':
		b.WriteString(`\n`)
	case r == '\r':
		b.WriteString(`\r`)
	case r == '\t':
		b.WriteString(`\t`)
	case r < 0x20 || r == 0x7f:
		fmt.Fprintf(b, "\\x%02x", r)
	case r >= 0x80 && r < 0xa0:
		// C1 controls; 0x9b is a one-byte CSI on some terminals.
		fmt.Fprintf(b, "\\u%04x", r)
	default:
		b.WriteRune(r)
	}
}
