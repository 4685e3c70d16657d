package basic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msxarchive/dskmgr/basic"
)

func TestTokenize_GotoLineNumberOperand(t *testing.T) {
	tokens, err := basic.Tokenize("10 GOTO 100\n")
	require.NoError(t, err)

	// Skip the 0xFF header and the 2-byte nextLinePtr placeholder to reach
	// the line number field.
	require.True(t, len(tokens) > 10)
	assert.Equal(t, byte(0xFF), tokens[0])
	assert.Equal(t, []byte{0x0A, 0x00}, tokens[3:5])

	body := tokens[5:]
	assert.Equal(t, byte(0x89), body[0]) // GOTO
	assert.Equal(t, byte(0x20), body[1]) // space
	assert.Equal(t, byte(0x0E), body[2]) // line-number operand marker
	assert.Equal(t, []byte{0x64, 0x00}, body[3:5])
}

func TestTokenize_InvalidLineNumber(t *testing.T) {
	_, err := basic.Tokenize("0 PRINT 1\n")
	assert.Error(t, err)

	_, err = basic.Tokenize("99999 PRINT 1\n")
	assert.Error(t, err)
}

func TestTokenize_RejectsNoLineNumber(t *testing.T) {
	_, err := basic.Tokenize("PRINT 1\n")
	assert.Error(t, err)
}

func TestTokenizeDetokenize_RoundTrip(t *testing.T) {
	src := "10 PRINT \"HI\"\n"
	tokens, err := basic.Tokenize(src)
	require.NoError(t, err)

	out, err := basic.Detokenize(tokens)
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestTokenize_SmallIntegerEncoding(t *testing.T) {
	tokens, err := basic.Tokenize("10 X=5\n")
	require.NoError(t, err)

	// 0x11+5 = 0x16 encodes the literal "5" per spec.md's small-integer rule.
	assert.Contains(t, tokens, byte(0x16))
}
