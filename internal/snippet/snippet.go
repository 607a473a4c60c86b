// Package snippet turns provider-encoded preview text into clean plain
// text. Normalization is idempotent: it decodes repeatedly until the value
// stops changing, so running it over an already-normalized string is a
// no-op.
package snippet

import (
	"html"
	"strings"
	"unicode"

	"github.com/k3a/html2text"
)

// Encoding names the transport encoding a provider applies to snippets.
type Encoding string

const (
	// EncodingGmail covers Gmail-style snippets: HTML entity artifacts,
	// leftover quoted-printable escapes, and zero-width padding characters.
	EncodingGmail Encoding = "gmail"
	// EncodingPlain is already plain text and only needs whitespace cleanup.
	EncodingPlain Encoding = "plain"
)

// maxPreviewLen bounds the preview derived from a full message body.
const maxPreviewLen = 200

// Normalize decodes raw into a consistent plain-text preview. It never
// fails; an unrecognized encoding gets best-effort whitespace cleanup of
// the raw value.
func Normalize(raw string, enc Encoding) string {
	switch enc {
	case EncodingGmail:
		return fixpoint(raw, decodeGmail)
	default:
		return collapseWhitespace(raw)
	}
}

// FromHTML derives a plain-text preview from an HTML body, for threads
// whose provider summary snippet is empty.
func FromHTML(body string) string {
	if body == "" {
		return ""
	}
	text := collapseWhitespace(html2text.HTML2Text(body))
	return truncate(text, maxPreviewLen)
}

// fixpoint applies decode until the output is stable. The bound exists only
// to keep pathological input from looping; real snippets settle in one or
// two passes.
func fixpoint(s string, decode func(string) string) string {
	const maxPasses = 4
	for range maxPasses {
		next := decode(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

func decodeGmail(s string) string {
	s = html.UnescapeString(s)
	s = decodeQuotedPrintable(s)
	s = stripInvisible(s)
	return collapseWhitespace(s)
}

// decodeQuotedPrintable resolves =XX escapes and soft line breaks that leak
// through from the raw MIME body into snippet text.
func decodeQuotedPrintable(s string) string {
	if !strings.ContainsRune(s, '=') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '=' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		// soft line break: "=" followed by CRLF or LF
		if s[i+1] == '\n' {
			i++
			continue
		}
		if s[i+1] == '\r' && i+2 < len(s) && s[i+2] == '\n' {
			i += 2
			continue
		}
		if i+2 < len(s) {
			if hi, okHi := fromHex(s[i+1]); okHi {
				if lo, okLo := fromHex(s[i+2]); okLo {
					b.WriteByte(hi<<4 | lo)
					i += 2
					continue
				}
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func fromHex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	default:
		return 0, false
	}
}

// stripInvisible drops the zero-width and soft-hyphen characters Gmail pads
// snippets with, and maps non-breaking spaces to plain spaces.
func stripInvisible(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\ufeff', '\u00ad':
			return -1
		case '\u00a0', '\u2007', '\u202f':
			return ' '
		default:
			return r
		}
	}, s)
}

func collapseWhitespace(s string) string {
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(fields, " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
