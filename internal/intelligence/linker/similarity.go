package linker

import (
	"fmt"
	"math"

	"github.com/hbollon/go-edlib"
)

// Scorer names accepted by NewScorer.
const (
	ScorerJaroWinkler = "jaro_winkler"
	ScorerLevenshtein = "levenshtein"
	ScorerIndel       = "indel"
)

// Scorer rates the similarity of two folded strings on a 0..100 scale.
type Scorer interface {
	Name() string
	Score(a, b string) float64
}

type edlibScorer struct {
	name string
	algo edlib.Algorithm
}

func (s edlibScorer) Name() string { return s.name }

func (s edlibScorer) Score(a, b string) float64 {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	sim, err := edlib.StringsSimilarity(a, b, s.algo)
	if err != nil {
		return 0
	}
	return toPercent(float64(sim))
}

// indelScorer is the normalized insert/delete distance:
// 2·LCS / (len(a)+len(b)), counted in runes.
type indelScorer struct{}

func (indelScorer) Name() string { return ScorerIndel }

func (indelScorer) Score(a, b string) float64 {
	if a == b {
		return 100
	}
	total := runeLen(a) + runeLen(b)
	if total == 0 {
		return 100
	}
	return toPercent(2 * float64(edlib.LCS(a, b)) / float64(total))
}

// toPercent scales a 0..1 similarity to 0..100 with two decimals, which
// removes float32 noise from edlib before threshold comparisons.
func toPercent(sim float64) float64 {
	return math.Round(sim*10000) / 100
}

// NewScorer returns the scorer registered under name; "" selects
// Jaro-Winkler.
func NewScorer(name string) (Scorer, error) {
	switch name {
	case "", ScorerJaroWinkler:
		return edlibScorer{name: ScorerJaroWinkler, algo: edlib.JaroWinkler}, nil
	case ScorerLevenshtein:
		return edlibScorer{name: ScorerLevenshtein, algo: edlib.Levenshtein}, nil
	case ScorerIndel:
		return indelScorer{}, nil
	default:
		return nil, fmt.Errorf("linker: unknown scorer %q", name)
	}
}

//Personal.AI order the ending
