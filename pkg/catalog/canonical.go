package catalog

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

const hexDigits = "0123456789abcdef"

// CanonicalText serializes the embeddable fields of rec as a single-line JSON object
// with a fixed key order: title, genres, overview, release_date, runtime, credits.
// Output is pure ASCII: every non-ASCII rune is written as a \uXXXX escape
// (surrogate pairs outside the BMP), and keys are separated by ", " and ": ".
// Changing the order or escaping invalidates every persisted embedding.
func CanonicalText(rec Record) string {
	fields := [...]struct{ key, value string }{
		{ColTitle, rec.Title},
		{ColGenres, rec.Genres},
		{ColOverview, rec.Overview},
		{ColReleaseDate, rec.ReleaseDate},
		{ColRuntime, rec.Runtime},
		{ColCredits, rec.Credits},
	}

	var b strings.Builder
	b.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			b.WriteString(", ")
		}
		writeString(&b, f.key)
		b.WriteString(": ")
		writeString(&b, f.value)
	}
	b.WriteByte('}')
	return b.String()
}

func writeString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size

		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			switch {
			case r < 0x20:
				writeEscape(b, r)
			case r < 0x7F:
				b.WriteRune(r)
			case r > 0xFFFF:
				hi, lo := utf16.EncodeRune(r)
				writeEscape(b, hi)
				writeEscape(b, lo)
			default:
				writeEscape(b, r)
			}
		}
	}
	b.WriteByte('"')
}

func writeEscape(b *strings.Builder, r rune) {
	b.WriteString(`\u`)
	b.WriteByte(hexDigits[(r>>12)&0xF])
	b.WriteByte(hexDigits[(r>>8)&0xF])
	b.WriteByte(hexDigits[(r>>4)&0xF])
	b.WriteByte(hexDigits[r&0xF])
}
