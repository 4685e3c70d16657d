package basic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msxarchive/dskmgr/basic"
)

func TestDetokenize_SmallProgram(t *testing.T) {
	stream := []byte{
		0xFF,
		0x00, 0x80, // nextLinePtr = 0x8000
		0x0A, 0x00, // line number 10
		0x91, 0x20, 0x22, 0x48, 0x49, 0x22, 0x00, // PRINT "HI"\0
		0x00, 0x00, // terminator
	}

	got, err := basic.Detokenize(stream)
	require.NoError(t, err)
	assert.Equal(t, "10 PRINT \"HI\"\n", got)
}

func TestDetokenize_MissingHeader(t *testing.T) {
	_, err := basic.Detokenize([]byte{0x00, 0x00})
	assert.Error(t, err)
}

func TestDetokenize_BCDSingleZeroHasNoBangSuffix(t *testing.T) {
	stream := []byte{
		0xFF,
		0x00, 0x80, // nextLinePtr = 0x8000
		0x0A, 0x00, // line number 10
		0x1D, 0x00, 0x00, 0x00, 0x00, 0x00, // BCD single zero
		0x00, 0x00, // terminator
	}

	got, err := basic.Detokenize(stream)
	require.NoError(t, err)
	assert.Equal(t, "10 0\n", got)
}
