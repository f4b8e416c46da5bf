package wayback

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/wayback-news-harvester/internal/crawler"
)

type fakeFetcher struct {
	body []byte
	err  error
	urls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) (crawler.FetchResponse, error) {
	f.urls = append(f.urls, rawURL)
	if f.err != nil {
		return crawler.FetchResponse{}, f.err
	}
	return crawler.FetchResponse{URL: rawURL, StatusCode: http.StatusOK, Body: f.body}, nil
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(crawler.DateLayout, s)
	require.NoError(t, err)
	return d
}

func TestQueryURL(t *testing.T) {
	t.Parallel()

	raw := QueryURL(DefaultCDXEndpoint, "www.marketwatch.com",
		crawler.DateRange{Start: day(t, "2025-01-10"), End: day(t, "2025-01-12")})
	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "web.archive.org", u.Host)
	assert.Equal(t, "/cdx/search/cdx", u.Path)
	q := u.Query()
	assert.Equal(t, "www.marketwatch.com", q.Get("url"))
	assert.Equal(t, "timestamp,original", q.Get("fl"))
	assert.Equal(t, "20250110", q.Get("from"))
	assert.Equal(t, "20250112", q.Get("to"))
	assert.Equal(t, "json", q.Get("output"))
	assert.Equal(t, []string{"mimetype:text/html", "statuscode:200"}, q["filter"])
	assert.Equal(t, "digest", q.Get("collapse"))
}

func TestQuerySkipsHeaderRow(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{body: []byte(`[
		["timestamp","original"],
		["20250110000000","https://www.marketwatch.com/"],
		["20250110120000","https://www.marketwatch.com/"],
		["broken"]
	]`)}
	client := New(fetcher, Config{Endpoint: "http://cdx.test/cdx"}, nil)
	dr := crawler.DateRange{Start: day(t, "2025-01-10"), End: day(t, "2025-01-10")}

	records := client.Query(context.Background(), "www.marketwatch.com", dr)
	require.Equal(t, []crawler.SnapshotRecord{
		{Timestamp: "20250110000000", OriginalURL: "https://www.marketwatch.com/"},
		{Timestamp: "20250110120000", OriginalURL: "https://www.marketwatch.com/"},
	}, records)
	require.Len(t, fetcher.urls, 1)
	assert.Contains(t, fetcher.urls[0], "http://cdx.test/cdx?")
}

func TestQueryFailuresReturnEmpty(t *testing.T) {
	t.Parallel()

	dr := crawler.DateRange{Start: day(t, "2025-01-10"), End: day(t, "2025-01-10")}
	tests := []struct {
		name    string
		fetcher *fakeFetcher
	}{
		{name: "fetch failure", fetcher: &fakeFetcher{err: &crawler.FetchError{URL: "x", Err: errors.New("down")}}},
		{name: "header only", fetcher: &fakeFetcher{body: []byte(`[["timestamp","original"]]`)}},
		{name: "empty body", fetcher: &fakeFetcher{body: nil}},
		{name: "empty array", fetcher: &fakeFetcher{body: []byte(`[]`)}},
		{name: "not json", fetcher: &fakeFetcher{body: []byte(`<html>`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client := New(tt.fetcher, Config{}, nil)
			assert.Empty(t, client.Query(context.Background(), "www.marketwatch.com", dr))
		})
	}
}

func TestClientArchiveURL(t *testing.T) {
	t.Parallel()

	client := New(&fakeFetcher{}, Config{}, nil)
	got := client.ArchiveURL(crawler.SampledRecord{
		Timestamp:   "20250110000000",
		SnapshotURL: "https://www.marketwatch.com//markets",
	})
	assert.Equal(t, "https://web.archive.org/web/20250110000000/https://www.marketwatch.com//markets", got)
}
