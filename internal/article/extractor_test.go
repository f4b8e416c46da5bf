package article

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/wayback-news-harvester/internal/crawler"
)

type stubResponse struct {
	status int
	body   string
	err    error
}

type stubFetcher struct {
	mu        sync.Mutex
	responses map[string]stubResponse
	calls     []string
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (crawler.FetchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	r, ok := f.responses[url]
	if !ok {
		return crawler.FetchResponse{}, &crawler.FetchError{URL: url, StatusCode: http.StatusNotFound, Attempts: 1}
	}
	if r.err != nil {
		return crawler.FetchResponse{}, r.err
	}
	return crawler.FetchResponse{URL: url, StatusCode: r.status, Body: []byte(r.body)}, nil
}

type stubParser struct {
	pages map[string]crawler.ParsedPage
}

func (p *stubParser) Parse(html []byte, _ string) (crawler.ParsedPage, error) {
	page, ok := p.pages[string(html)]
	if !ok {
		return crawler.ParsedPage{}, errors.New("unparseable")
	}
	return page, nil
}

const (
	v1 = "https://web.archive.org/web/20250110000000/https://www.marketwatch.com/story/a-11111111"
	v2 = "https://web.archive.org/web/20250111000000/https://www.marketwatch.com/story/a-11111111"
	v3 = "https://web.archive.org/web/20250112000000/https://www.marketwatch.com/story/a-11111111"
)

func TestExtractUsesFirstSuccessfulVariant(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{responses: map[string]stubResponse{
		v1: {err: &crawler.FetchError{URL: v1, Err: errors.New("timeout"), Attempts: 9}},
		v2: {status: http.StatusOK, body: "good"},
		v3: {status: http.StatusOK, body: "good"},
	}}
	parser := &stubParser{pages: map[string]crawler.ParsedPage{
		"good": {Title: "  Headline  ", Text: "Body text.", Keywords: []string{"markets"}},
	}}

	rec, ok := New(fetcher, parser, nil).Extract(context.Background(), crawler.ArticleVariantGroup{
		CanonicalKey: "www.marketwatch.com/story/a-11111111",
		Variants:     []string{v1, v2, v3},
	})
	require.True(t, ok)
	assert.Equal(t, []string{v1, v2}, fetcher.calls, "stops after the first success")
	assert.Equal(t, "Headline", rec.Headline)
	assert.Equal(t, v2, rec.URL)
	assert.Equal(t, v2, rec.ArchiveURL)
	assert.Equal(t, "20250111000000", rec.Timestamp)
	assert.Equal(t, "markets", rec.Keywords)
}

func TestExtractSkipsNon200AndParseErrors(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{responses: map[string]stubResponse{
		v1: {status: http.StatusNoContent, body: "good"},
		v2: {status: http.StatusOK, body: "garbage"},
		v3: {status: http.StatusOK, body: "good"},
	}}
	parser := &stubParser{pages: map[string]crawler.ParsedPage{"good": {Title: "T", Text: "x"}}}

	rec, ok := New(fetcher, parser, nil).Extract(context.Background(),
		crawler.ArticleVariantGroup{Variants: []string{v1, v2, v3}})
	require.True(t, ok)
	assert.Equal(t, v3, rec.URL)
}

func TestExtractAllVariantsFail(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{responses: map[string]stubResponse{v2: {status: http.StatusOK, body: "garbage"}}}
	_, ok := New(fetcher, &stubParser{}, nil).Extract(context.Background(),
		crawler.ArticleVariantGroup{Variants: []string{v1, v2}})
	assert.False(t, ok)
	assert.Len(t, fetcher.calls, 2)
}

func TestExtractStopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fetcher := &stubFetcher{}
	_, ok := New(fetcher, &stubParser{}, nil).Extract(ctx, crawler.ArticleVariantGroup{Variants: []string{v1}})
	assert.False(t, ok)
	assert.Empty(t, fetcher.calls)
}

func TestBuildRecordKeywordScenario(t *testing.T) {
	t.Parallel()

	rec := BuildRecord(v1, crawler.ParsedPage{
		Title:        "Apple rises",
		Text:         "Shares rose.",
		MetaKeywords: []string{"wsj-markets", "LINK|123", "US:AAPL", "factset-data"},
		Keywords:     []string{"ignored"},
	})
	assert.Equal(t, "-markets,US:AAPL", rec.Keywords)
	assert.Equal(t, "US:AAPL", rec.Companies)
}

func TestBuildRecordContentFallback(t *testing.T) {
	t.Parallel()

	body := "The Fed held rates.\n\nMarkets rallied."
	rec := BuildRecord(v1, crawler.ParsedPage{Text: body})
	assert.Equal(t, body, rec.Content, "no meta description means content is exactly the body")

	withDesc := BuildRecord(v1, crawler.ParsedPage{Text: body, MetaDescription: "Rates unchanged."})
	assert.Equal(t, "Rates unchanged.\n"+body, withDesc.Content)

	descOnly := BuildRecord(v1, crawler.ParsedPage{MetaDescription: "Rates unchanged."})
	assert.Equal(t, "Rates unchanged.", descOnly.Content)
}

func TestBuildRecordMetadataFallbacks(t *testing.T) {
	t.Parallel()

	rec := BuildRecord(v1, crawler.ParsedPage{
		Title:   "   ",
		Summary: "",
		MetaData: map[string]string{
			"parsely-title":   " Parsely headline ",
			"parsely-summary": "Parsely summary.",
			"article.id":      "SB10001424052970299",
		},
	})
	assert.Equal(t, "Parsely headline", rec.Headline)
	assert.Equal(t, "Parsely summary.", rec.Summary)
	assert.Equal(t, "", rec.Date, "trailing digits 52970299 are not a valid date")

	empty := BuildRecord("https://www.marketwatch.com/story/x-12345678", crawler.ParsedPage{})
	assert.Equal(t, "", empty.Headline)
	assert.Equal(t, "", empty.Summary)
	assert.Equal(t, "", empty.Timestamp)
	assert.Equal(t, "", empty.Keywords)
	assert.Equal(t, "", empty.Companies)
}

func TestKeywordSourcePriority(t *testing.T) {
	t.Parallel()

	meta := map[string]string{"news_keywords": "meta-news", "keywords": "meta-plain"}
	assert.Equal(t, "tag", BuildRecord(v1, crawler.ParsedPage{
		MetaKeywords: []string{"tag"}, Keywords: []string{"nlp"}, MetaData: meta,
	}).Keywords)
	assert.Equal(t, "nlp", BuildRecord(v1, crawler.ParsedPage{Keywords: []string{"nlp"}, MetaData: meta}).Keywords)
	assert.Equal(t, "meta-news", BuildRecord(v1, crawler.ParsedPage{MetaData: meta}).Keywords)
	assert.Equal(t, "meta-plain,other", BuildRecord(v1, crawler.ParsedPage{
		MetaData: map[string]string{"keywords": "meta-plain, other"},
	}).Keywords)
}

func TestFilterKeywords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "numeric", in: []string{"12345", "a1"}, want: []string{"a1"}},
		{name: "link prefix", in: []string{"LINK|x", "xLINK|"}, want: []string{"xLINK|"}},
		{name: "WSJ anywhere", in: []string{"WSJ-PRO", "proWSJ", "Wsj"}, want: []string{"Wsj"}},
		{name: "SYND exact", in: []string{"SYND", "SYNDx"}, want: []string{"SYNDx"}},
		{name: "factiva and factset", in: []string{"factiva-x", "FACTIVA", "factset"}, want: nil},
		{name: "filter", in: []string{"filter-1", "Filter"}, want: nil},
		{name: "gfx", in: []string{"gfx-chart", "gfx"}, want: []string{"gfx"}},
		{name: "strip wsj", in: []string{"wsj-markets", "wsj"}, want: []string{"-markets"}},
		{name: "companies kept", in: []string{"US:AAPL", "UK:BP"}, want: []string{"US:AAPL", "UK:BP"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := FilterKeywords(tt.in)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompanies(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"US:AAPL", "US:MSFT"}, Companies([]string{"US:AAPL", "markets", "US:MSFT", "UK:BP"}))
	assert.Nil(t, Companies(nil))
}

func TestResolveDate(t *testing.T) {
	t.Parallel()

	published := time.Date(2025, 1, 10, 23, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		page crawler.ParsedPage
		want string
	}{
		{name: "parsed date", page: crawler.ParsedPage{PublishDate: &published}, want: "2025-01-10"},
		{name: "article id", page: crawler.ParsedPage{MetaData: map[string]string{"article.id": "SB20250109"}}, want: "2025-01-09"},
		{name: "parsed date wins", page: crawler.ParsedPage{
			PublishDate: &published, MetaData: map[string]string{"article.id": "SB20240101"},
		}, want: "2025-01-10"},
		{name: "invalid id date", page: crawler.ParsedPage{MetaData: map[string]string{"article.id": "20251399"}}, want: ""},
		{name: "id not trailing", page: crawler.ParsedPage{MetaData: map[string]string{"article.id": "20250110x"}}, want: ""},
		{name: "nothing", page: crawler.ParsedPage{}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ResolveDate(tt.page))
		})
	}
}
