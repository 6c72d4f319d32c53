// Package search ranks marketplace listings by how well their text overlaps
// a buyer's query. Indexes are built per request over an already filtered
// candidate set, are read-only afterwards and safe for concurrent use.
//
// A listing scores the Jaccard similarity between the query tokens and its
// tokens, plus a bonus per query token found in the title and a fixed boost
// when the title contains the whole query. Matching ignores case and
// diacritics, so "jalapeno" finds "Jalapeño".
package search

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Document is one listing.
type Document struct {
	ID    string
	Title string
	Body  string // category, description, seller
}

// Result is a ranked document id with its score.
type Result struct {
	ID    string
	Score float64
}

// Index ranks a fixed document set.
type Index interface {
	TopK(query string, k int) []Result
}

// Option tunes an Index.
type Option func(*options)

type options struct {
	stopwords   map[string]struct{}
	titleWeight float64
	phraseBoost float64
	keepAll     bool
}

// WithStopwords drops the given words from queries and documents.
func WithStopwords(words ...string) Option {
	return func(o *options) {
		for _, w := range words {
			if w = fold(strings.TrimSpace(w)); w != "" {
				o.stopwords[w] = struct{}{}
			}
		}
	}
}

// WithTitleWeight sets the bonus per query token present in the title.
func WithTitleWeight(w float64) Option {
	return func(o *options) {
		if w >= 0 {
			o.titleWeight = w
		}
	}
}

// WithKeepAll keeps documents that match nothing, after every match and in
// input order, so re-ranking a filtered page never drops rows.
func WithKeepAll() Option {
	return func(o *options) { o.keepAll = true }
}

type entry struct {
	id     string
	title  string
	tokens map[string]struct{}
	titled map[string]struct{}
}

type index struct {
	opt  options
	docs []entry
}

// NewIndex builds an Index over docs. Input order breaks ties.
func NewIndex(docs []Document, opts ...Option) Index {
	o := options{stopwords: map[string]struct{}{}, titleWeight: 0.25, phraseBoost: 0.5}
	for _, fn := range opts {
		fn(&o)
	}
	idx := &index{opt: o, docs: make([]entry, len(docs))}
	for i, d := range docs {
		title := fold(d.Title)
		idx.docs[i] = entry{
			id:     d.ID,
			title:  strings.Join(strings.Fields(title), " "),
			tokens: tokenize(title+" "+fold(d.Body), o.stopwords),
			titled: tokenize(title, o.stopwords),
		}
	}
	return idx
}

// TopK returns up to k best matches; k <= 0 means all. An empty query
// ranks nothing.
func (x *index) TopK(query string, k int) []Result {
	q := fold(query)
	qTokens := tokenize(q, x.opt.stopwords)
	phrase := strings.Join(strings.Fields(q), " ")
	if phrase == "" || len(x.docs) == 0 {
		return nil
	}

	type scored struct {
		Result
		order int
	}
	hits := make([]scored, 0, len(x.docs))
	for i, d := range x.docs {
		var score float64
		if shared := overlap(qTokens, d.tokens); shared > 0 {
			score = float64(shared) / float64(len(qTokens)+len(d.tokens)-shared)
		}
		score += x.opt.titleWeight * float64(overlap(qTokens, d.titled))
		if strings.Contains(d.title, phrase) {
			score += x.opt.phraseBoost
		}
		if score == 0 && !x.opt.keepAll {
			continue
		}
		hits = append(hits, scored{Result{ID: d.id, Score: score}, i})
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return hits[a].order < hits[b].order
	})
	if k <= 0 || k > len(hits) {
		k = len(hits)
	}
	out := make([]Result, k)
	for i := range out {
		out[i] = hits[i].Result
	}
	return out
}

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*|\p{N}+`)

// fold lowercases s and strips combining marks. Chained transformers keep
// state, so each call builds its own.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	words := wordRE.FindAllString(s, -1)
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if _, skip := stop[w]; !skip {
			out[w] = struct{}{}
		}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}
