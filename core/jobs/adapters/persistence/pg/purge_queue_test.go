package pg

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateError(t *testing.T) {
	assert.Equal(t, "boom", truncateError("boom"))

	ascii := strings.Repeat("x", maxErrorLength+10)
	assert.Len(t, truncateError(ascii), maxErrorLength)

	// "é" is two bytes; the limit falls inside the last one.
	multi := strings.Repeat("x", maxErrorLength-1) + "é" + "tail"
	got := truncateError(multi)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("x", maxErrorLength-1), got)

	cjk := strings.Repeat("界", maxErrorLength)
	got = truncateError(cjk)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), maxErrorLength)
	assert.Equal(t, maxErrorLength/3, utf8.RuneCountInString(got))
}
