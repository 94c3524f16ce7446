package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetSplitPart(t *testing.T) {
	part, err := GetSplitPart("Posted by msmash on Monday", " on ", 0)
	assert.NoError(t, err)
	assert.Equal(t, "Posted by msmash", part)

	_, err = GetSplitPart("a/b", "/", 5)
	assert.Error(t, err)
}

func TestTrimIDPrefix(t *testing.T) {
	id, ok := TrimIDPrefix("title-123", "title-")
	assert.True(t, ok)
	assert.Equal(t, "123", id)

	_, ok = TrimIDPrefix("title-", "title-")
	assert.False(t, ok)

	_, ok = TrimIDPrefix("story-123", "title-")
	assert.False(t, ok)
}
