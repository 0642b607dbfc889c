// Package transcript normalises raw speech-to-text output toward a known
// vocabulary before phrase matching. Live transcription regularly mangles the
// short cue words that matter here ("beep" comes back as "bip" or "beef",
// "tone" as "town"), which would make a literal keyword match miss the cue.
//
// The corrector combines Double Metaphone phonetic equality with a bounded
// Levenshtein distance: a token is rewritten to a vocabulary word only when it
// sounds the same AND is within a small edit distance, so unrelated words that
// merely share a phonetic code are left alone.
package transcript

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultMaxEditDistance = 2

	// minTokenLen guards short function words ("a", "at", "we") from being
	// rewritten; corrections below this length are more often wrong than right.
	minTokenLen = 3
)

// Correction records one token rewrite applied by [Corrector.Correct].
type Correction struct {
	Original  string
	Corrected string
	Distance  int
}

// Option is a functional option for configuring a [Corrector].
type Option func(*Corrector)

// WithMaxEditDistance sets the Levenshtein distance ceiling for accepting a
// phonetic match. Default: 2.
func WithMaxEditDistance(d int) Option {
	return func(c *Corrector) {
		c.maxDistance = d
	}
}

type vocabEntry struct {
	word      string
	primary   string
	secondary string
}

// Corrector rewrites mis-transcribed tokens to their nearest vocabulary word.
// It is read-only after construction and safe for concurrent use.
type Corrector struct {
	vocab       []vocabEntry
	vocabExact  map[string]struct{}
	maxDistance int
}

// NewCorrector builds a [Corrector] over the given vocabulary. Vocabulary
// words shorter than three characters are ignored; duplicates are collapsed.
func NewCorrector(vocabulary []string, opts ...Option) *Corrector {
	c := &Corrector{
		vocabExact:  make(map[string]struct{}, len(vocabulary)),
		maxDistance: defaultMaxEditDistance,
	}
	for _, o := range opts {
		o(c)
	}
	for _, w := range vocabulary {
		w = strings.ToLower(strings.TrimSpace(w))
		if len(w) < minTokenLen {
			continue
		}
		if _, dup := c.vocabExact[w]; dup {
			continue
		}
		c.vocabExact[w] = struct{}{}
		p, s := matchr.DoubleMetaphone(w)
		c.vocab = append(c.vocab, vocabEntry{word: w, primary: p, secondary: s})
	}
	return c
}

// VocabularyFromPhrases extracts the unique correctable words from a list of
// cue phrases. Words shorter than three characters are dropped.
func VocabularyFromPhrases(phrases []string) []string {
	seen := make(map[string]struct{})
	var vocab []string
	for _, phrase := range phrases {
		for _, w := range strings.Fields(strings.ToLower(phrase)) {
			w = strings.Trim(w, ".,!?'\"")
			if len(w) < minTokenLen {
				continue
			}
			if _, dup := seen[w]; dup {
				continue
			}
			seen[w] = struct{}{}
			vocab = append(vocab, w)
		}
	}
	return vocab
}

// Correct rewrites tokens of text that phonetically match a vocabulary word
// within the edit-distance bound. It returns the corrected text and the list
// of rewrites applied; when nothing matched, the text is returned unchanged
// with a nil corrections slice. Matching is case-insensitive and the output
// is lower-cased.
func (c *Corrector) Correct(text string) (string, []Correction) {
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 || len(c.vocab) == 0 {
		return strings.ToLower(text), nil
	}

	var corrections []Correction
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok

		bare := strings.Trim(tok, ".,!?'\"")
		if len(bare) < minTokenLen {
			continue
		}
		if _, exact := c.vocabExact[bare]; exact {
			continue
		}

		word, dist, ok := c.match(bare)
		if !ok {
			continue
		}
		out[i] = strings.Replace(tok, bare, word, 1)
		corrections = append(corrections, Correction{Original: bare, Corrected: word, Distance: dist})
	}

	return strings.Join(out, " "), corrections
}

// match returns the phonetically-equal vocabulary word with the smallest edit
// distance within the bound, if any.
func (c *Corrector) match(token string) (word string, distance int, ok bool) {
	p, s := matchr.DoubleMetaphone(token)
	if p == "" && s == "" {
		return "", 0, false
	}

	bestDist := c.maxDistance + 1
	for _, v := range c.vocab {
		if !codesEqual(p, s, v) {
			continue
		}
		d := matchr.Levenshtein(token, v.word)
		if d < bestDist {
			bestDist = d
			word = v.word
		}
	}
	if word == "" {
		return "", 0, false
	}
	return word, bestDist, true
}

// codesEqual reports whether the token's Double Metaphone codes overlap the
// vocabulary entry's codes.
func codesEqual(p, s string, v vocabEntry) bool {
	for _, code := range []string{p, s} {
		if code == "" {
			continue
		}
		if code == v.primary || (v.secondary != "" && code == v.secondary) {
			return true
		}
	}
	return false
}
