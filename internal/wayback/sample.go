package wayback

import (
	"cmp"
	"math/rand/v2"
	"slices"

	"github.com/JakeFAU/wayback-news-harvester/internal/crawler"
)

// DefaultSeed keeps sampling reproducible across runs.
const DefaultSeed uint64 = 42

// DefaultTopics are the MarketWatch section paths visited for every capture.
var DefaultTopics = []string{
	"/investing/technology",
	"/investing/autos",
	"/investing/banking",
	"/markets/us",
	"/investing/industries",
	"/investing/stocks",
	"/investing/internet-online-services",
	"/investing/retail",
	"/latest-news",
	"/markets/financial-markets",
	"/investing/software",
	"/markets",
}

type sampleKey struct {
	day string
	key string
}

// Sample keeps at most limit records per (capture day, canonical URL) group,
// drawn without replacement from a generator seeded identically for every
// group. A negative limit returns records unchanged. Groups are emitted in
// (day, key) order and members in capture order.
func Sample(records []crawler.SnapshotRecord, limit int, seed uint64) []crawler.SnapshotRecord {
	if limit < 0 {
		return records
	}
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b crawler.SnapshotRecord) int {
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})

	groups := make(map[sampleKey][]crawler.SnapshotRecord)
	for _, rec := range sorted {
		k := sampleKey{day: rec.Day(), key: crawler.CanonicalKey(rec.OriginalURL)}
		groups[k] = append(groups[k], rec)
	}
	keys := make([]sampleKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b sampleKey) int {
		return cmp.Or(cmp.Compare(a.day, b.day), cmp.Compare(a.key, b.key))
	})

	out := make([]crawler.SnapshotRecord, 0, len(sorted))
	for _, k := range keys {
		members := groups[k]
		n := min(limit, len(members))
		rng := rand.New(rand.NewPCG(seed, seed))
		picked := rng.Perm(len(members))[:n]
		slices.Sort(picked)
		for _, idx := range picked {
			out = append(out, members[idx])
		}
	}
	return out
}

// FanOut pairs every record with every topic path by plain concatenation.
func FanOut(records []crawler.SnapshotRecord, topics []string) []crawler.SampledRecord {
	out := make([]crawler.SampledRecord, 0, len(records)*len(topics))
	for _, rec := range records {
		for _, topic := range topics {
			out = append(out, crawler.SampledRecord{
				Timestamp:   rec.Timestamp,
				SnapshotURL: rec.OriginalURL + "/" + topic,
			})
		}
	}
	return out
}
