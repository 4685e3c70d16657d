package basic

import (
	"fmt"
	"strconv"
	"strings"

	derrors "github.com/msxarchive/dskmgr/errors"
)

// lineAddressOrigin is the MSX memory address the first tokenized byte is
// assumed to be loaded at; nextLinePtr and GOTO/GOSUB line-address operands
// are expressed relative to it.
const lineAddressOrigin = 0x8000

// Detokenize converts a tokenized MSX-BASIC byte stream (the envelope from
// spec.md §3: header 0xFF, then line records, terminated by a zero
// nextLinePtr) into source text, one line per line record, LF-separated.
func Detokenize(stream []byte) (string, error) {
	if len(stream) == 0 || stream[0] != 0xFF {
		return "", derrors.ErrIO.WithMessage("tokenized stream missing 0xFF header")
	}

	var out strings.Builder
	offset := 1

	for {
		if offset+4 > len(stream) {
			break
		}
		nextPtr := readLE16(stream, offset)
		lineNumber := readLE16(stream, offset+2)
		bodyStart := offset + 4

		if nextPtr == 0 {
			break
		}

		line, bodyLen := detokenizeBody(stream, stream[bodyStart:])
		out.WriteString(strconv.Itoa(int(lineNumber)))
		out.WriteByte(' ')
		out.WriteString(line)
		out.WriteByte('\n')

		nextOffset := int(nextPtr) - lineAddressOrigin
		if nextOffset <= offset {
			// Malformed/non-monotonic pointer: fall back to scanning past
			// this line's body instead of looping forever.
			offset = bodyStart + bodyLen + 1
			continue
		}
		offset = nextOffset
	}

	return out.String(), nil
}

// detokenizeBody decodes one line's body (everything after the 4-byte
// nextLinePtr/lineNumber header, up to and including the terminating
// 0x00), per spec.md §4.7's per-opcode dispatch table. It returns the
// decoded text and the number of body bytes consumed, not counting the
// terminating 0x00. stream is the whole tokenized program, against which
// 0x0D line-address operands are resolved.
func detokenizeBody(stream, body []byte) (string, int) {
	var out strings.Builder
	i := 0

	for i < len(body) {
		b := body[i]
		if b == 0x00 {
			return out.String(), i
		}

		switch {
		case b == 0xFF:
			i++
			if i >= len(body) {
				return out.String(), i
			}
			if kw, ok := lookupCode2(body[i]); ok {
				out.WriteString(kw.Word)
			}
			// Unknown 0xFFxx code: silently swallowed, per spec.md §4.10.
			i++

		case b == 0x3A:
			i++
			switch {
			case i < len(body) && body[i] == 0xA1:
				out.WriteString("ELSE")
				i++
			case i+1 < len(body) && body[i] == 0x8F && body[i+1] == 0xE6:
				out.WriteByte('\'')
				i += 2
			default:
				out.WriteByte(':')
			}

		case b == 0x0B:
			v := readLE16(body, i+1)
			out.WriteString(fmt.Sprintf("&O%o", v))
			i += 3

		case b == 0x0C:
			v := readLE16(body, i+1)
			out.WriteString(fmt.Sprintf("&H%X", v))
			i += 3

		case b == 0x0D:
			addr := readLE16(body, i+1)
			lineNum := readLE16(stream, int(addr)-lineAddressOrigin)
			out.WriteString(strconv.Itoa(int(lineNum)))
			i += 3

		case b == 0x0E:
			v := readLE16(body, i+1)
			out.WriteString(strconv.Itoa(int(v)))
			i += 3

		case b == 0x0F:
			out.WriteString(strconv.Itoa(int(body[i+1])))
			i += 2

		case b >= 0x11 && b <= 0x1A:
			out.WriteString(strconv.Itoa(int(b - 0x11)))
			i++

		case b == 0x1C:
			v := int16(readLE16(body, i+1))
			out.WriteString(strconv.Itoa(int(v)))
			i += 3

		case b == 0x1D:
			var raw [4]byte
			copy(raw[:], body[i+1:i+5])
			s := DecodeBCDSingle(raw)
			if needsSingleSuffix(s) {
				out.WriteByte('!')
			}
			out.WriteString(s)
			i += 5

		case b == 0x1F:
			var raw [8]byte
			copy(raw[:], body[i+1:i+9])
			out.WriteByte('#')
			out.WriteString(DecodeBCDDouble(raw))
			i += 9

		case b < 0x80:
			out.WriteByte(b)
			i++

		default:
			if kw, ok := lookupCode1(b); ok {
				out.WriteString(kw.Word)
			}
			// Unknown opcode ≥ 0x80: silently swallowed, per spec.md §4.10.
			i++
		}
	}

	return out.String(), i
}

// needsSingleSuffix reports whether a decoded single-precision value needs
// the "!" type-suffix prefix: integers that look like they'd otherwise
// parse as a different numeric type on re-tokenization. Zero is exempt:
// per spec.md §8 scenario 5, an all-zero BCD single decodes to the bare
// literal "0", not "!0".
func needsSingleSuffix(s string) bool {
	return s != "0" && !strings.ContainsAny(s, ".")
}

func readLE16(buf []byte, offset int) uint16 {
	if offset < 0 || offset+1 >= len(buf) {
		return 0
	}
	return uint16(buf[offset]) | uint16(buf[offset+1])<<8
}
