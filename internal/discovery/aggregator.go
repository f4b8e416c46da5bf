package discovery

import "github.com/JakeFAU/wayback-news-harvester/internal/crawler"

// Aggregate groups links by canonical key. Groups appear in order of first
// sighting and each keeps its variants in encounter order; a raw URL seen
// twice is kept once.
func Aggregate(links []crawler.CandidateLink) []crawler.ArticleVariantGroup {
	index := make(map[string]int)
	var groups []crawler.ArticleVariantGroup
	seen := make(map[string]struct{}, len(links))
	for _, link := range links {
		if _, dup := seen[link.RawURL]; dup {
			continue
		}
		seen[link.RawURL] = struct{}{}

		key := crawler.CanonicalKey(link.RawURL)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, crawler.ArticleVariantGroup{CanonicalKey: key})
		}
		groups[i].Variants = append(groups[i].Variants, link.RawURL)
	}
	return groups
}
