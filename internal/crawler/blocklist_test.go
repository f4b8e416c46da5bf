package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExclusionListDefaults(t *testing.T) {
	t.Parallel()

	list := NewExclusionList(nil)

	for _, pattern := range DefaultExcludePatterns {
		url := "https://www.marketwatch.com/x/" + pattern + "/story-12345678"
		assert.True(t, list.IsExcluded(url), "pattern %q should exclude %s", pattern, url)
	}
	assert.True(t, list.IsExcluded("https://www.marketwatch.com/VIDEO/12345-678"))
	assert.False(t, list.IsExcluded("https://www.marketwatch.com/story/fed-holds-rates-11223344"))
}

func TestExclusionListCustomPatterns(t *testing.T) {
	t.Parallel()

	list := NewExclusionList([]string{" Crypto ", "", "crypto"})
	assert.Len(t, list.patterns, 1)
	assert.True(t, list.IsExcluded("https://example.com/CRYPTO/coin-12345"))
	assert.False(t, list.IsExcluded("https://example.com/video/clip-12345"))
}

func TestExclusionListNil(t *testing.T) {
	t.Parallel()

	var list *ExclusionList
	assert.False(t, list.IsExcluded("https://example.com/video"))
}
