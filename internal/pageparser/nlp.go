package pageparser

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
	"unicode"
)

var sentenceEnd = regexp.MustCompile(`[.!?]["')\]]?\s+`)

var stopWords = toSet(`a about above after again against all also am an and any are as at be because been
before being below between both but by can could did do does doing down during each few for from further
had has have having he her here hers herself him himself his how i if in into is it its itself just me
more most my myself no nor not now of off on once only or other our ours ourselves out over own said same
says she should so some such than that the their theirs them themselves then there these they this those
through to too under until up very was we were what when where which while who whom why will with would
you your yours yourself yourselves new one two year years percent mr ms inc`)

func toSet(words string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(words) {
		out[w] = struct{}{}
	}
	return out
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func significant(word string) bool {
	word = strings.Trim(word, "'")
	if len(word) < 3 {
		return false
	}
	if _, stop := stopWords[word]; stop {
		return false
	}
	return strings.IndexFunc(word, unicode.IsLetter) >= 0
}

func frequencies(text string) (map[string]int, []string) {
	counts := make(map[string]int)
	var order []string
	for _, w := range tokenize(text) {
		w = strings.Trim(w, "'")
		if !significant(w) {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}
	return counts, order
}

// Keywords returns up to n significant words ranked by frequency, ties
// broken by first appearance.
func Keywords(text string, n int) []string {
	counts, order := frequencies(text)
	if len(order) == 0 || n <= 0 {
		return nil
	}
	first := make(map[string]int, len(order))
	for i, w := range order {
		first[w] = i
	}
	ranked := slices.Clone(order)
	slices.SortStableFunc(ranked, func(a, b string) int {
		return cmp.Or(cmp.Compare(counts[b], counts[a]), cmp.Compare(first[a], first[b]))
	})
	return ranked[:min(n, len(ranked))]
}

// Sentences splits text into trimmed sentences.
func Sentences(text string) []string {
	var out []string
	for _, para := range strings.Split(text, "\n") {
		rest := strings.TrimSpace(para)
		for rest != "" {
			loc := sentenceEnd.FindStringIndex(rest)
			if loc == nil {
				out = append(out, rest)
				break
			}
			if s := strings.TrimSpace(rest[:loc[1]]); s != "" {
				out = append(out, s)
			}
			rest = strings.TrimSpace(rest[loc[1]:])
		}
	}
	return out
}

// Summarize picks the n highest scoring sentences of text and returns them
// in document order, one per line. Sentences score by the body frequency of
// their words plus overlap with the title.
func Summarize(title, text string, n int) string {
	sentences := Sentences(text)
	if len(sentences) == 0 || n <= 0 {
		return ""
	}
	counts, _ := frequencies(text)
	titleWords, _ := frequencies(title)

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, 0, len(sentences))
	for i, s := range sentences {
		words := tokenize(s)
		if len(words) == 0 {
			continue
		}
		var total float64
		for _, w := range words {
			w = strings.Trim(w, "'")
			total += float64(counts[w])
			if titleWords[w] > 0 {
				total += 2
			}
		}
		scores = append(scores, scored{idx: i, score: total / float64(len(words))})
	}
	slices.SortStableFunc(scores, func(a, b scored) int {
		return cmp.Or(cmp.Compare(b.score, a.score), cmp.Compare(a.idx, b.idx))
	})
	scores = scores[:min(n, len(scores))]
	slices.SortFunc(scores, func(a, b scored) int { return cmp.Compare(a.idx, b.idx) })

	picked := make([]string, 0, len(scores))
	for _, s := range scores {
		picked = append(picked, sentences[s.idx])
	}
	return strings.Join(picked, "\n")
}
