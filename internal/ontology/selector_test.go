package ontology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelector(t *testing.T) {
	sel, err := ParseSelector("0xa9059cbb")
	require.NoError(t, err)
	assert.Equal(t, Selector{0xa9, 0x05, 0x9c, 0xbb}, sel)
	assert.Equal(t, "0xa9059cbb", sel.String())
}

func TestParseSelectorAcceptsUppercase(t *testing.T) {
	sel, err := ParseSelector("0xA9059CBB")
	require.NoError(t, err)
	assert.Equal(t, "0xa9059cbb", sel.String()) // canonical form is lowercase
}

func TestParseSelectorRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "a9059cbb", "0xa9059cb", "0xa9059cbb1", "0xg9059cbb", "0X a9059cbb"} {
		_, err := ParseSelector(in)
		assert.Error(t, err, in)
	}
}

func TestMustSelectorPanics(t *testing.T) {
	assert.Panics(t, func() { MustSelector("0x1") })
}
