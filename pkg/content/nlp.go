package content

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/JesusIslam/tldr"
	"github.com/jdkato/prose/v2"
)

// Keywords returns up to n most frequent meaningful words of text.
// Ties are broken by first appearance.
func Keywords(text string, n int) []string {
	words := tokenize(text)
	if len(words) == 0 || n <= 0 {
		return nil
	}

	freq, order := wordFrequency(words)
	ranked := make([]string, 0, len(freq))
	for w := range freq {
		ranked = append(ranked, w)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if freq[ranked[i]] != freq[ranked[j]] {
			return freq[ranked[i]] > freq[ranked[j]]
		}
		return order[ranked[i]] < order[ranked[j]]
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// Summarize picks n highest scored sentences of text and returns them in original order.
// A sentence scores by its pagerank centrality in the sentence similarity graph and by words
// shared with the title, leading sentences get a small boost as news put the gist first.
func Summarize(title, text string, n int) string {
	sentences := splitSentences(text)
	if len(sentences) == 0 || n <= 0 {
		return ""
	}
	if len(sentences) <= n {
		return strings.Join(sentences, " ")
	}

	centrality := sentenceCentrality(sentences)
	titleWords := map[string]bool{}
	for _, w := range tokenize(title) {
		titleWords[w] = true
	}

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
		score := centrality[i]
		if len(titleWords) > 0 {
			inTitle := 0
			for _, w := range dedupe(words) {
				if titleWords[w] {
					inTitle++
				}
			}
			score += float64(inTitle) / float64(len(titleWords))
		}
		score += positionBoost(i, len(sentences))
		scores = append(scores, scored{idx: i, score: score})
	}

	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if len(scores) > n {
		scores = scores[:n]
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].idx < scores[j].idx })

	picked := make([]string, 0, len(scores))
	for _, s := range scores {
		picked = append(picked, sentences[s.idx])
	}
	return strings.Join(picked, " ")
}

// sentenceCentrality ranks sentences with tldr pagerank over word overlap and maps the rank
// position to (0, 1], best sentence gets 1. Sentences sharing no words with others get 0.
func sentenceCentrality(sentences []string) []float64 {
	bag := tldr.New()
	bag.OriginalSentences = sentences
	bag.SetWordTokenizer(tokenize)
	bag.Weighing = "custom"
	bag.SetCustomWeighing(overlap)

	res := make([]float64, len(sentences))
	if _, err := bag.Summarize("", 1); err != nil {
		return res
	}
	for pos, idx := range bag.Ranks {
		if idx >= 0 && idx < len(res) {
			res[idx] = 1 - float64(pos)/float64(len(sentences))
		}
	}
	return res
}

// overlap is the cosine similarity of two binary word vectors
func overlap(a, b []int) float64 {
	var common, na, nb int
	for i := range a {
		if a[i] > 0 {
			na++
		}
		if b[i] > 0 {
			nb++
		}
		if a[i] > 0 && b[i] > 0 {
			common++
		}
	}
	if common == 0 {
		return 0
	}
	return float64(common) / math.Sqrt(float64(na*nb))
}

func positionBoost(idx, total int) float64 {
	switch {
	case idx == 0:
		return 0.3
	case float64(idx) < float64(total)*0.1:
		return 0.15
	default:
		return 0
	}
}

// splitSentences segments each line of text with the punkt sentence tokenizer
func splitSentences(text string) []string {
	var res []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		doc, err := prose.NewDocument(line, prose.WithTokenization(false), prose.WithTagging(false),
			prose.WithExtraction(false))
		if err != nil {
			continue
		}
		for _, s := range doc.Sentences() {
			if s := strings.Join(strings.Fields(s.Text), " "); s != "" {
				res = append(res, s)
			}
		}
	}
	return res
}

// tokenize returns lower-cased words without stopwords, numbers and one or two letter tokens
func tokenize(text string) []string {
	doc, err := prose.NewDocument(strings.ToLower(text), prose.WithSegmentation(false), prose.WithTagging(false),
		prose.WithExtraction(false))
	if err != nil {
		return nil
	}
	tokens := doc.Tokens()
	res := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		f := strings.Trim(tok.Text, "-'")
		if len([]rune(f)) < 3 || stopwords[f] || !isWord(f) {
			continue
		}
		res = append(res, strings.TrimSuffix(f, "'s"))
	}
	return res
}

func wordFrequency(words []string) (freq, firstSeen map[string]int) {
	freq = make(map[string]int, len(words))
	firstSeen = make(map[string]int, len(words))
	for i, w := range words {
		if _, ok := freq[w]; !ok {
			firstSeen[w] = i
		}
		freq[w]++
	}
	return freq, firstSeen
}

// isWord reports whether s is made of letters, digits, hyphens and apostrophes with at least one letter
func isWord(s string) bool {
	hasLetter := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r), r == '-', r == '\'':
		default:
			return false
		}
	}
	return hasLetter
}

var stopwords = func() map[string]bool {
	words := `about above after again against all also am an and any are aren't as at be because been before
being below between both but by can can't cannot could couldn't did didn't do does doesn't doing don't down
during each few for from further had hadn't has hasn't have haven't having he he'd he'll he's her here here's
hers herself him himself his how how's if in into is isn't it it's its itself let's me more most mustn't my
myself no nor not of off on once only or other ought our ours ourselves out over own same shan't she she'd
she'll she's should shouldn't so some such than that that's the their theirs them themselves then there
there's these they they'd they'll they're they've this those through to too under until up very was wasn't
we we'd we'll we're we've were weren't what what's when when's where where's which while who who's whom why
why's with won't would wouldn't you you'd you'll you're you've your yours yourself yourselves said says say
will just new one two like now get got also many much may might must year years according told including
use used using make made per via said`
	res := map[string]bool{}
	for _, w := range strings.Fields(words) {
		res[w] = true
	}
	return res
}()
