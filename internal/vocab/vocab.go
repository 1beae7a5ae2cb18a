// Package vocab corrects recognizer output against a user-supplied
// vocabulary of domain terms (names, products, jargon) that offline models
// habitually mangle.
//
// Matching runs in two stages. Double Metaphone codes gate the candidate
// set: a vocabulary term is only considered when it shares at least one
// phonetic code with the window under test. Gated candidates are then
// ranked by Jaro-Winkler similarity on the raw strings and the best one
// wins if it clears the phonetic threshold. When nothing overlaps
// phonetically, a stricter pure Jaro-Winkler fallback still catches close
// misspellings.
//
// Multi-word terms are handled with a sliding window over the input
// tokens, longest window first, so "cooper netty's" can collapse onto
// "Kubernetes" while single-word terms still match one token at a time.
package vocab

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85

	// minWindowLen guards very short tokens ("a", "to") from ever being
	// rewritten.
	minWindowLen = 3
)

// Option configures a Corrector.
type Option func(*Corrector)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score for a
// phonetically gated candidate. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(c *Corrector) { c.phoneticThreshold = threshold }
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score for the
// no-phonetic-overlap fallback. Default: 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(c *Corrector) { c.fuzzyThreshold = threshold }
}

// term is one vocabulary entry with its precomputed matching data.
type term struct {
	canonical  string
	lower      string
	tokens     int
	firstToken string
	codes      map[string]struct{}
}

// Corrector rewrites text against a fixed vocabulary. Read-only after
// construction, so safe for concurrent use.
type Corrector struct {
	terms             []term
	maxTokens         int
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New builds a Corrector for the given vocabulary. Blank entries are
// ignored; duplicate spellings keep their first canonical form.
func New(vocabulary []string, opts ...Option) *Corrector {
	c := &Corrector{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(c)
	}

	seen := make(map[string]struct{}, len(vocabulary))
	for _, v := range vocabulary {
		canonical := strings.TrimSpace(v)
		if canonical == "" {
			continue
		}
		lower := strings.ToLower(canonical)
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}

		tokens := strings.Fields(lower)
		c.terms = append(c.terms, term{
			canonical:  canonical,
			lower:      lower,
			tokens:     len(tokens),
			firstToken: tokens[0],
			codes:      phoneticCodes(tokens),
		})
		if len(tokens) > c.maxTokens {
			c.maxTokens = len(tokens)
		}
	}
	return c
}

// Empty reports whether the corrector has no vocabulary and Apply would be
// an identity function.
func (c *Corrector) Empty() bool { return len(c.terms) == 0 }

// Apply rewrites every vocabulary hit in text to its canonical spelling.
// Tokens that match nothing pass through untouched; surrounding
// punctuation survives a replacement. Whitespace is normalised to single
// spaces, which recognizer output already uses.
func (c *Corrector) Apply(text string) string {
	if c.Empty() {
		return text
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}

	out := make([]string, 0, len(words))
	for i := 0; i < len(words); {
		replaced := false
		for n := c.maxTokens; n >= 1 && !replaced; n-- {
			if i+n > len(words) {
				continue
			}
			window := strings.Join(words[i:i+n], " ")
			lead, core, trail := splitPunct(window)
			if len(core) < minWindowLen {
				continue
			}
			if repl, ok := c.matchTerm(core); ok {
				out = append(out, lead+repl+trail)
				i += n
				replaced = true
			}
		}
		if !replaced {
			out = append(out, words[i])
			i++
		}
	}
	return strings.Join(out, " ")
}

// matchTerm finds the best vocabulary term for one window of text.
func (c *Corrector) matchTerm(window string) (string, bool) {
	lower := strings.ToLower(window)
	tokens := strings.Fields(lower)
	codes := phoneticCodes(tokens)

	var (
		best         string
		bestScore    float64
		bestPhonetic bool
	)
	for _, t := range c.terms {
		if t.lower == lower {
			return t.canonical, true
		}
		// Multi-word windows must open on the term's first word;
		// otherwise a window shifted by one token can swallow an
		// unrelated neighbour on overall similarity alone.
		if len(tokens) > 1 && t.tokens > 1 &&
			matchr.JaroWinkler(tokens[0], t.firstToken, false) < 0.80 {
			continue
		}
		score := similarity(lower, t.lower)
		if codesOverlap(codes, t.codes) {
			if score >= c.phoneticThreshold && (!bestPhonetic || score > bestScore) {
				best, bestScore, bestPhonetic = t.canonical, score, true
			}
		} else if !bestPhonetic && score >= c.fuzzyThreshold && score > bestScore {
			best, bestScore = t.canonical, score
		}
	}
	return best, best != ""
}

// similarity scores two strings with Jaro-Winkler, also trying the
// space-stripped forms so token-count mismatches ("data dog" vs "Datadog")
// do not depress the score.
func similarity(a, b string) float64 {
	score := matchr.JaroWinkler(a, b, false)
	if strings.ContainsRune(a, ' ') || strings.ContainsRune(b, ' ') {
		ca := strings.ReplaceAll(a, " ", "")
		cb := strings.ReplaceAll(b, " ", "")
		if s := matchr.JaroWinkler(ca, cb, false); s > score {
			score = s
		}
	}
	return score
}

// phoneticCodes returns the union of Double Metaphone codes of the tokens.
func phoneticCodes(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		primary, secondary := matchr.DoubleMetaphone(t)
		if primary != "" {
			codes[primary] = struct{}{}
		}
		if secondary != "" {
			codes[secondary] = struct{}{}
		}
	}
	return codes
}

// codesOverlap reports whether the sets share a code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// splitPunct separates leading and trailing punctuation from the word
// core. Punctuation inside the core (apostrophes, hyphens) stays put.
func splitPunct(s string) (lead, core, trail string) {
	start := 0
	for start < len(s) && isPunct(s[start]) {
		start++
	}
	end := len(s)
	for end > start && isPunct(s[end-1]) {
		end--
	}
	return s[:start], s[start:end], s[end:]
}

func isPunct(b byte) bool {
	switch b {
	case '.', ',', '!', '?', ';', ':', '"', '\'', '(', ')', '[', ']':
		return true
	}
	return false
}
