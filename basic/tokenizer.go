package basic

import (
	"strconv"
	"strings"

	derrors "github.com/msxarchive/dskmgr/errors"
)

// Tokenize converts LF-separated MSX-BASIC source text into the tokenized
// byte stream envelope of spec.md §3, per the line-level logic of §4.8. It
// returns ErrInvalidLineNumber (and no partial output) if any line's
// number is 0 or greater than 65535.
func Tokenize(source string) ([]byte, error) {
	lines := strings.Split(source, "\n")

	out := []byte{0xFF}
	lineOffsets := []int{}

	for _, rawLine := range lines {
		line := strings.TrimRight(rawLine, "\r")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		lineNumber, rest, err := splitLineNumber(line)
		if err != nil {
			return nil, err
		}

		lineOffsets = append(lineOffsets, len(out))
		out = append(out, 0, 0) // placeholder nextLinePtr, backpatched below
		out = appendLE16(out, lineNumber)

		body, err := tokenizeBody(rest)
		if err != nil {
			return nil, err
		}
		out = append(out, body...)
		out = append(out, 0x00)

		// Backpatch this line's nextLinePtr to point at the following
		// line's header, now that we know where it starts.
		patchLE16(out, lineOffsets[len(lineOffsets)-1], lineAddressOrigin+len(out))
	}

	out = append(out, 0x00, 0x00)
	return out, nil
}

// splitLineNumber parses the leading decimal line number off line and
// returns it along with the remaining text (with exactly one separating
// space stripped, if present).
func splitLineNumber(line string) (uint16, string, error) {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, "", derrors.ErrInvalidLineNumber.WithMessage("line has no leading number: " + line)
	}

	n, err := strconv.Atoi(line[:i])
	if err != nil || n < 1 || n > 65535 {
		return 0, "", derrors.ErrInvalidLineNumber.WithMessage("out of range: " + line[:i])
	}

	rest := strings.TrimPrefix(line[i:], " ")
	return uint16(n), rest, nil
}

// tokenizeBody scans one line's body left-to-right, dispatching per
// spec.md §4.8's pattern table.
func tokenizeBody(body string) ([]byte, error) {
	var out []byte
	i := 0
	lastWasHighKeyword := false

	for i < len(body) {
		c := body[i]

		switch {
		case c == '"':
			j := i + 1
			for j < len(body) && body[j] != '"' {
				j++
			}
			if j < len(body) {
				j++ // include closing quote
			}
			out = append(out, body[i:j]...)
			i = j
			lastWasHighKeyword = false
			continue

		case i+1 < len(body) && body[i] == '&' && (body[i+1] == 'O' || body[i+1] == 'o'):
			j := i + 2
			for j < len(body) && isOctalDigit(body[j]) {
				j++
			}
			v, _ := strconv.ParseUint(body[i+2:j], 8, 16)
			out = append(out, 0x0B)
			out = appendLE16(out, uint16(v))
			i = j
			lastWasHighKeyword = false
			continue

		case i+1 < len(body) && body[i] == '&' && (body[i+1] == 'H' || body[i+1] == 'h'):
			j := i + 2
			for j < len(body) && isHexDigit(body[j]) {
				j++
			}
			v, _ := strconv.ParseUint(body[i+2:j], 16, 16)
			out = append(out, 0x0C)
			out = appendLE16(out, uint16(v))
			i = j
			lastWasHighKeyword = false
			continue

		case i+1 < len(body) && body[i] == '&' && (body[i+1] == 'B' || body[i+1] == 'b'):
			// Literal ASCII pass-through, per spec.md §9: &B binary literals
			// are deliberately left un-tokenized.
			j := i + 2
			for j < len(body) && (body[j] == '0' || body[j] == '1') {
				j++
			}
			out = append(out, body[i:j]...)
			i = j
			lastWasHighKeyword = false
			continue
		}

		if kw, ok := matchKeyword(body[i:]); ok {
			i += len(kw.Word)
			switch kw.code {
			case 0x89, 0x8D: // GOTO, GOSUB
				out = append(out, byte(kw.code))
				for i < len(body) && body[i] == ' ' {
					i++
				}
				out = append(out, ' ', 0x0E)
				j := i
				for j < len(body) && body[j] >= '0' && body[j] <= '9' {
					j++
				}
				n, _ := strconv.Atoi(body[i:j])
				out = appendLE16(out, uint16(n))
				i = j
			case 0x8F: // REM: copy the remainder of the line verbatim.
				out = append(out, byte(kw.code))
				out = append(out, body[i:]...)
				i = len(body)
			default:
				out = append(out, encodeKeywordCode(kw)...)
			}
			lastWasHighKeyword = kw.code >= 0x80
			continue
		}

		if isDigit(c) || (c == '%' && i+1 < len(body) && isDigit(body[i+1])) {
			j := i
			if c == '%' {
				j++
			}
			start := j
			for j < len(body) && (isDigit(body[j]) || body[j] == '.') {
				j++
			}
			numText := body[start:j]
			isReal := strings.Contains(numText, ".") || lastWasHighKeyword
			suffix := byte(0)
			if j < len(body) && (body[j] == '!' || body[j] == '#') {
				suffix = body[j]
				j++
			}

			encoded, err := encodeNumber(numText, isReal, suffix)
			if err != nil {
				return nil, err
			}
			out = append(out, encoded...)
			i = j
			lastWasHighKeyword = false
			continue
		}

		out = append(out, c)
		i++
		lastWasHighKeyword = false
	}

	return out, nil
}

// encodeKeywordCode emits kw's opcode in big-endian order, per spec.md
// §4.8: 1, 2, 3, or 4 bytes depending on the keyword's class.
func encodeKeywordCode(kw Keyword) []byte {
	switch kw.ByteLength {
	case 1:
		return []byte{byte(kw.code)}
	case 2:
		return []byte{byte(kw.code >> 8), byte(kw.code)}
	case 3:
		return []byte{byte(kw.code >> 16), byte(kw.code >> 8), byte(kw.code)}
	default:
		return []byte{byte(kw.code >> 24), byte(kw.code >> 16), byte(kw.code >> 8), byte(kw.code)}
	}
}

// encodeNumber emits the numeric-literal opcode for numText, per spec.md
// §4.8's decimal-integer / real dispatch.
func encodeNumber(numText string, isReal bool, suffix byte) ([]byte, error) {
	if isReal || suffix != 0 {
		if suffix == '#' {
			raw, err := EncodeBCDDouble(numText)
			if err != nil {
				return nil, err
			}
			return append([]byte{0x1F}, raw[:]...), nil
		}
		raw, err := EncodeBCDSingle(numText)
		if err != nil {
			return nil, err
		}
		return append([]byte{0x1D}, raw[:]...), nil
	}

	n, err := strconv.Atoi(numText)
	if err != nil {
		return nil, err
	}
	switch {
	case n < 10:
		return []byte{0x11 + byte(n)}, nil
	case n < 256:
		return []byte{0x0F, byte(n)}, nil
	default:
		return []byte{0x1C, byte(n), byte(n >> 8)}, nil
	}
}

func isDigit(b byte) bool      { return b >= '0' && b <= '9' }
func isOctalDigit(b byte) bool { return b >= '0' && b <= '7' }
func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'A' && b <= 'F') || (b >= 'a' && b <= 'f')
}

func appendLE16(buf []byte, v uint16) []byte {
	return append(buf, byte(v), byte(v>>8))
}

func patchLE16(buf []byte, offset int, v int) {
	buf[offset] = byte(v)
	buf[offset+1] = byte(v >> 8)
}
