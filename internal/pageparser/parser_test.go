package pageparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head>
  <title>Fed holds rates steady as inflation cools</title>
  <meta name="description" content="The Federal Reserve left rates unchanged.">
  <meta name="news_keywords" content="wsj-markets, LINK|123,US:AAPL ,factset-data">
  <meta name="keywords" content="fallback,keywords">
  <meta name="parsely-title" content="Parsely headline">
  <meta name="parsely-summary" content="Parsely summary.">
  <meta name="article.id" content="SB20250110">
  <meta property="article:published_time" content="2025-01-10T14:30:00Z">
  <meta property="og:title" content="Fed holds rates steady as inflation cools">
</head>
<body>
  <nav><a href="/markets">Markets</a></nav>
  <article>
    <h1>Fed holds rates steady as inflation cools</h1>
    <p>The Federal Reserve held interest rates steady on Friday, citing cooling inflation across the economy and a resilient labor market that continues to add jobs.</p>
    <p>Inflation cooled for a third straight month, and Fed officials said rates would stay on hold until inflation moves closer to the target. Markets rallied after the decision.</p>
    <p>Investors now expect the Fed to cut rates later this year if inflation keeps cooling. Treasury yields fell and stocks rose in afternoon trading on Wall Street.</p>
  </article>
</body>
</html>`

func TestParseExtractsFields(t *testing.T) {
	t.Parallel()

	page, err := New(Config{}).Parse([]byte(articleHTML),
		"https://web.archive.org/web/20250110123456/https://www.marketwatch.com/story/fed-holds-11223344")
	require.NoError(t, err)

	assert.Equal(t, "Fed holds rates steady as inflation cools", page.Title)
	assert.Contains(t, page.Text, "The Federal Reserve held interest rates steady")
	assert.Contains(t, page.Text, "Treasury yields fell")
	assert.Equal(t, "The Federal Reserve left rates unchanged.", page.MetaDescription)
	assert.Equal(t, []string{"wsj-markets", "LINK|123", "US:AAPL", "factset-data"}, page.MetaKeywords)

	assert.Equal(t, "Parsely headline", page.MetaData["parsely-title"])
	assert.Equal(t, "Parsely summary.", page.MetaData["parsely-summary"])
	assert.Equal(t, "SB20250110", page.MetaData["article.id"])
	assert.Equal(t, "fallback,keywords", page.MetaData["keywords"])

	require.NotNil(t, page.PublishDate)
	assert.Equal(t, "2025-01-10", page.PublishDate.UTC().Format("2006-01-02"))

	require.NotEmpty(t, page.Keywords)
	assert.Contains(t, page.Keywords, "inflation")
	assert.LessOrEqual(t, len(page.Keywords), 10)
	assert.NotEmpty(t, page.Summary)
}

func TestParseFallsBackToBodyText(t *testing.T) {
	t.Parallel()

	html := `<html><head><title>Short note</title></head><body><p>Only one line.</p></body></html>`
	page, err := New(Config{}).Parse([]byte(html), "")
	require.NoError(t, err)
	assert.Equal(t, "Short note", page.Title)
	assert.Contains(t, page.Text, "Only one line.")
	assert.Empty(t, page.MetaDescription)
	assert.Nil(t, page.MetaKeywords)
	assert.Nil(t, page.PublishDate)
}

func TestParseEmptyPageErrors(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}).Parse([]byte(`<html><head></head><body></body></html>`), "")
	require.ErrorIs(t, err, ErrNoContent)
}

func TestMetaPublishDateFallback(t *testing.T) {
	t.Parallel()

	got := metaPublishDate(map[string]string{"parsely-pub-date": "Jan 10, 2025"})
	require.NotNil(t, got)
	assert.Equal(t, "2025-01-10", got.Format("2006-01-02"))

	assert.Nil(t, metaPublishDate(map[string]string{"date": "not a date"}))
	assert.Nil(t, metaPublishDate(nil))
}

func TestNormalizeText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "first line\n\nsecond line", normalizeText("  first   line \n\n\n\t second line  \n"))
	assert.Equal(t, "", normalizeText(" \n \n"))
}
