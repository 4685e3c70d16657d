// Package basic implements the MSX-BASIC tokenizer and detokenizer: the
// byte-stream envelope, keyword table, and BCD floating-point codec, per
// spec.md §3/§4.7/§4.8/§4.9.
package basic

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	_ "embed"

	"github.com/gocarina/gocsv"
)

// Keyword is one entry of the word<->opcode table: a reserved word, its
// opcode, and how many bytes that opcode occupies on the wire. Ported from
// the teacher's disks.DiskGeometry CSV-row idiom to a word/code mapping
// instead of a disk-geometry mapping.
type Keyword struct {
	Word       string `csv:"word"`
	Code       string `csv:"code"`
	ByteLength int    `csv:"byte_length"`

	code uint32
}

//go:embed keywords.csv
var keywordsRawCSV string

// keywordsByWord is used by the tokenizer for longest-prefix matching:
// sorted by descending word length so the first match scanning left-to-
// right is always the longest one.
var keywordsByWord []Keyword

// keywordsByCode is used by the detokenizer: looked up by the packed
// opcode value once its byte length is known from the leading byte(s).
var keywordsByCode map[uint32]Keyword

func init() {
	var rows []Keyword
	if err := gocsv.UnmarshalString(keywordsRawCSV, &rows); err != nil {
		panic(fmt.Sprintf("basic: failed to parse embedded keyword table: %v", err))
	}

	keywordsByCode = make(map[uint32]Keyword, len(rows))
	for i := range rows {
		code, err := strconv.ParseUint(strings.TrimPrefix(rows[i].Code, "0x"), 16, 32)
		if err != nil {
			panic(fmt.Sprintf("basic: keyword %q has malformed code %q: %v", rows[i].Word, rows[i].Code, err))
		}
		rows[i].code = uint32(code)
		keywordsByCode[rows[i].code] = rows[i]
	}

	keywordsByWord = append(keywordsByWord, rows...)
	sort.SliceStable(keywordsByWord, func(i, j int) bool {
		return len(keywordsByWord[i].Word) > len(keywordsByWord[j].Word)
	})
}

// matchKeyword finds the longest keyword that is a case-insensitive prefix
// of s, per spec.md §4.8's "longest-prefix, case-insensitive" rule. It
// returns ok=false if no keyword matches.
func matchKeyword(s string) (Keyword, bool) {
	upper := strings.ToUpper(s)
	for _, kw := range keywordsByWord {
		if len(kw.Word) == 0 || len(kw.Word) > len(upper) {
			continue
		}
		if strings.HasPrefix(upper, kw.Word) {
			return kw, true
		}
	}
	return Keyword{}, false
}

// lookupCode1 finds the keyword for a single-byte opcode ≥ 0x80.
func lookupCode1(b byte) (Keyword, bool) {
	kw, ok := keywordsByCode[uint32(b)]
	return kw, ok
}

// lookupCode2 finds the keyword for a two-byte 0xFFxx opcode.
func lookupCode2(second byte) (Keyword, bool) {
	kw, ok := keywordsByCode[0xFF00|uint32(second)]
	return kw, ok
}
