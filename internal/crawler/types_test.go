package crawler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateRangeValidate(t *testing.T) {
	t.Parallel()

	day := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, DateRange{Start: day, End: day}.Validate())
	require.NoError(t, DateRange{Start: day, End: day.AddDate(0, 0, 1)}.Validate())
	require.ErrorIs(t, DateRange{Start: day.AddDate(0, 0, 1), End: day}.Validate(), ErrInvalidDateRange)
}

func TestArticleRecordLists(t *testing.T) {
	t.Parallel()

	rec := ArticleRecord{Keywords: "-markets, US:AAPL,,", Companies: "US:AAPL"}
	assert.Equal(t, []string{"-markets", "US:AAPL"}, rec.KeywordList())
	assert.Equal(t, []string{"US:AAPL"}, rec.CompanyList())
	assert.Nil(t, ArticleRecord{}.KeywordList())
}

func TestSnapshotRecordDay(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "20250110", SnapshotRecord{Timestamp: "20250110123456"}.Day())
	assert.Equal(t, "2025", SnapshotRecord{Timestamp: "2025"}.Day())
}
