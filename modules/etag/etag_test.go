package etag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type versioned string

func (v versioned) V() string { return string(v) }

func TestETag(t *testing.T) {
	assert.Equal(t, "v:7", ETag(versioned("7")))
}

func TestParseVersion(t *testing.T) {
	for _, in := range []string{`v:7`, `"v:7"`, `W/"v:7"`, ` "v:7" `} {
		n, err := ParseVersion(in)
		require.NoError(t, err, in)
		assert.Equal(t, int64(7), n, in)
	}

	for _, in := range []string{"", "7", `"7"`, "v:", "v:x", "v:0", "v:-1"} {
		_, err := ParseVersion(in)
		assert.ErrorIs(t, err, ErrInvalidETag, in)
	}
}
