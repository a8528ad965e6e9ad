package etag

import (
	"errors"
	"strconv"
	"strings"
)

var ErrInvalidETag = errors.New("invalid etag format")

type ETaggable interface {
	V() string
}

// ETag returns the unquoted tag "v:<version>". Quote it with strconv.Quote
// before putting it in a header.
func ETag(obj ETaggable) string {
	return "v:" + obj.V()
}

func ParseETag(etag string) (string, error) {
	etag = strings.TrimPrefix(strings.TrimSpace(etag), "W/")
	if unq, err := strconv.Unquote(etag); err == nil {
		etag = unq
	}
	v, ok := strings.CutPrefix(etag, "v:")
	if !ok || v == "" {
		return "", ErrInvalidETag
	}
	return v, nil
}

// ParseVersion reads an If-Match style header into a version number.
func ParseVersion(header string) (int64, error) {
	v, err := ParseETag(header)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 1 {
		return 0, ErrInvalidETag
	}
	return n, nil
}
