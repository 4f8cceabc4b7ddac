// Package novelty decides whether a generated post is too close to recent
// posts. Two measures are combined: cosine similarity over term frequencies
// and Jaccard similarity over word trigrams. Exceeding either threshold
// against any reference rejects the candidate.
package novelty

import (
	"errors"
	"fmt"
)

// RegenerateHint is returned with every rejecting verdict
const RegenerateHint = "change structure and examples; focus on a different facet; avoid repeating phrases"

const (
	DefaultCosineThreshold  = 0.78
	DefaultJaccardThreshold = 0.32
)

// ErrInvalidConfig is returned by Config.Validate
var ErrInvalidConfig = errors.New("invalid novelty config")

// Config holds the guard policy constants
type Config struct {
	CosineThreshold  float64 `yaml:"cosine_threshold"`
	JaccardThreshold float64 `yaml:"jaccard_threshold"`
	NGramSize        int     `yaml:"ngram_size"`
}

// DefaultConfig returns the tuned thresholds (0.78 cosine, 0.32 trigram Jaccard)
func DefaultConfig() Config {
	return Config{
		CosineThreshold:  DefaultCosineThreshold,
		JaccardThreshold: DefaultJaccardThreshold,
		NGramSize:        DefaultNGramSize,
	}
}

// Validate checks thresholds lie in [0,1] and the n-gram size is positive
func (c Config) Validate() error {
	if c.CosineThreshold < 0 || c.CosineThreshold > 1 {
		return fmt.Errorf("%w: cosine threshold %v outside [0,1]", ErrInvalidConfig, c.CosineThreshold)
	}
	if c.JaccardThreshold < 0 || c.JaccardThreshold > 1 {
		return fmt.Errorf("%w: jaccard threshold %v outside [0,1]", ErrInvalidConfig, c.JaccardThreshold)
	}
	if c.NGramSize < 1 {
		return fmt.Errorf("%w: ngram size %d must be at least 1", ErrInvalidConfig, c.NGramSize)
	}
	return nil
}

// Scores holds both similarity measures for one (candidate, reference) pair
type Scores struct {
	Index   int     `json:"index"`
	Cosine  float64 `json:"cosine"`
	Jaccard float64 `json:"jaccard"`
}

// Verdict is the outcome of one Evaluate call.
// Match is set only when the candidate was rejected.
type Verdict struct {
	Accepted bool    `json:"accepted"`
	Hint     string  `json:"hint,omitempty"`
	Match    *Scores `json:"match,omitempty"`
}

// Guard evaluates candidates against reference texts. It holds no mutable
// state and may be shared between goroutines.
type Guard struct {
	config Config
}

// NewGuard creates a guard with the given policy. A zero Config means
// DefaultConfig; otherwise thresholds are used as given, so 0 rejects any
// overlap. A non-positive n-gram size falls back to DefaultNGramSize.
func NewGuard(cfg Config) *Guard {
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	if cfg.NGramSize <= 0 {
		cfg.NGramSize = DefaultNGramSize
	}
	return &Guard{config: cfg}
}

// Config returns the policy the guard was built with
func (g *Guard) Config() Config {
	return g.config
}

type prepared struct {
	tokens []string
	grams  map[string]struct{}
}

func (g *Guard) prepare(text string) prepared {
	tokens := Tokenize(StripMarkup(text))
	return prepared{tokens: tokens, grams: NGrams(tokens, g.config.NGramSize)}
}

func (g *Guard) score(candidate prepared, reference string, index int) Scores {
	ref := g.prepare(reference)
	return Scores{
		Index:   index,
		Cosine:  Cosine(candidate.tokens, ref.tokens),
		Jaccard: Jaccard(candidate.grams, ref.grams),
	}
}

func (g *Guard) exceeds(s Scores) bool {
	return s.Cosine > g.config.CosineThreshold || s.Jaccard > g.config.JaccardThreshold
}

// Evaluate compares candidate with each reference in order and rejects on the
// first one whose cosine or Jaccard score is above its threshold.
func (g *Guard) Evaluate(candidate string, references []string) Verdict {
	cand := g.prepare(candidate)

	for i, reference := range references {
		s := g.score(cand, reference, i)
		if g.exceeds(s) {
			return Verdict{Accepted: false, Hint: RegenerateHint, Match: &s}
		}
	}

	return Verdict{Accepted: true}
}

// Compare scores a single pair
func (g *Guard) Compare(candidate, reference string) Scores {
	return g.score(g.prepare(candidate), reference, 0)
}

// Report scores candidate against every reference without short-circuiting
func (g *Guard) Report(candidate string, references []string) []Scores {
	cand := g.prepare(candidate)
	scores := make([]Scores, len(references))
	for i, reference := range references {
		scores[i] = g.score(cand, reference, i)
	}
	return scores
}

// Exceeds reports whether s would cause a rejection under this guard's policy
func (g *Guard) Exceeds(s Scores) bool {
	return g.exceeds(s)
}
