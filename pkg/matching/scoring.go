package matching

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/Ramsey-B/clover/pkg/models"
)

// ScoreMode selects the strict first-pass rules or the relaxed rematch rules
type ScoreMode int

const (
	// ScoreModeStrict is used by the primary linking pass
	ScoreModeStrict ScoreMode = iota
	// ScoreModeRelaxed adds partial phone matching, a 30 day temporal tier and the name+phone override
	ScoreModeRelaxed
)

// OverrideMode controls how the relaxed name+phone override combines with the additive score
type OverrideMode string

const (
	// OverrideModeMax raises the score to the override floor and never lowers it
	OverrideModeMax OverrideMode = "max"
	// OverrideModeReplace sets the score to the override value even when the additive score was higher
	OverrideModeReplace OverrideMode = "replace"
)

// ScoreWeights holds the points of each matching signal
type ScoreWeights struct {
	PhoneExact        float64
	PhonePartial      float64
	NameExact         float64
	NameSimilar       float64
	NameSimilarity    float64 // Similarity a name must exceed to count as similar
	SecondaryID       float64
	Address           float64
	AddressSimilarity float64 // Similarity an address must exceed to count
	Within1h          float64
	Within24h         float64
	Within48h         float64
	Within30d         float64 // Relaxed mode only
	Amount            float64
	Override          float64 // Relaxed mode name+phone floor
}

// DefaultScoreWeights returns the standard point system.
// Phone identity dominates; names and timing corroborate.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		PhoneExact:        40,
		PhonePartial:      30,
		NameExact:         20,
		NameSimilar:       10,
		NameSimilarity:    0.8,
		SecondaryID:       25,
		Address:           10,
		AddressSimilarity: 0.7,
		Within1h:          15,
		Within24h:         10,
		Within48h:         5,
		Within30d:         2,
		Amount:            5,
		Override:          70,
	}
}

// MatchCandidate is the comparison of a source record against one target
type MatchCandidate struct {
	Source           *IndexedRecord
	Target           *IndexedRecord
	Score            float64
	Details          []string
	TimeDeltaSeconds float64 // -1 when either timestamp is missing
}

// Better reports whether c should win over other: higher score first, then smaller time delta.
// Equal candidates are not better, so the first one discovered is kept.
func (c *MatchCandidate) Better(other *MatchCandidate) bool {
	if other == nil {
		return true
	}
	if c.Score != other.Score {
		return c.Score > other.Score
	}
	return deltaLess(c.TimeDeltaSeconds, other.TimeDeltaSeconds)
}

// deltaLess orders known deltas ascending and unknown (-1) deltas last
func deltaLess(a, b float64) bool {
	switch {
	case a < 0:
		return false
	case b < 0:
		return true
	default:
		return a < b
	}
}

// Scorer compares strings and indexed records
type Scorer struct {
	weights  ScoreWeights
	override OverrideMode
}

// NewScorer creates a new Scorer
func NewScorer(weights ScoreWeights, override OverrideMode) *Scorer {
	if override == "" {
		override = OverrideModeMax
	}
	return &Scorer{weights: weights, override: override}
}

// Weights returns the scorer's point system
func (s *Scorer) Weights() ScoreWeights {
	return s.weights
}

// StringSimilarity returns the bigram Dice coefficient of two strings in [0,1]
func (s *Scorer) StringSimilarity(a, b string) float64 {
	return StringSimilarity(a, b)
}

// StringSimilarity computes the Dice coefficient over character bigrams after folding
// case and removing whitespace. Empty input scores 0 and identical input scores 1.
func StringSimilarity(a, b string) float64 {
	a, b = foldForSimilarity(a), foldForSimilarity(b)
	if a == "" || b == "" {
		return 0.0
	}
	if a == b {
		return 1.0
	}

	ba, bb := bigrams(a), bigrams(b)
	total := 0
	for _, n := range ba {
		total += n
	}
	for _, n := range bb {
		total += n
	}
	if total == 0 {
		return 0.0
	}

	shared := 0
	for gram, na := range ba {
		if nb, ok := bb[gram]; ok {
			shared += min(na, nb)
		}
	}

	return 2 * float64(shared) / float64(total)
}

func foldForSimilarity(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if !unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// bigrams counts the two-rune substrings of s
func bigrams(s string) map[string]int {
	rs := []rune(s)
	grams := make(map[string]int, len(rs))
	for i := 0; i+1 < len(rs); i++ {
		grams[string(rs[i:i+2])]++
	}
	return grams
}

// Score compares a source record with a target record.
// sourceField and targetField choose which timestamp of each deal the temporal signal uses.
func (s *Scorer) Score(source, target *IndexedRecord, sourceField, targetField models.TimeField, mode ScoreMode) *MatchCandidate {
	w := s.weights
	c := &MatchCandidate{
		Source:           source,
		Target:           target,
		TimeDeltaSeconds: -1,
	}

	phoneExact := source.Phone != "" && source.Phone == target.Phone
	switch {
	case phoneExact:
		c.add(w.PhoneExact, "phone exact")
	case mode == ScoreModeRelaxed && source.PhoneTail != "" && source.PhoneTail == target.PhoneTail:
		c.add(w.PhonePartial, fmt.Sprintf("phone partial(last %d)", len(source.PhoneTail)))
	}

	nameExact := source.NormName != "" && source.NormName == target.NormName
	if nameExact {
		c.add(w.NameExact, "name exact")
	} else if sim := StringSimilarity(source.NormName, target.NormName); sim > w.NameSimilarity {
		c.add(w.NameSimilar, fmt.Sprintf("name similar(%.2f)", sim))
	}

	if source.SecondaryID != "" && source.SecondaryID == target.SecondaryID {
		c.add(w.SecondaryID, "secondary id exact")
	}

	if sim := StringSimilarity(source.NormAddress, target.NormAddress); sim > w.AddressSimilarity {
		c.add(w.Address, fmt.Sprintf("address similar(%.2f)", sim))
	}

	st, tt := source.Deal.Time(sourceField), target.Deal.Time(targetField)
	if !st.IsZero() && !tt.IsZero() {
		delta := math.Abs(st.Sub(tt).Seconds())
		c.TimeDeltaSeconds = delta
		s.scoreTemporal(c, time.Duration(delta*float64(time.Second)), mode)
	}

	if a, b := source.Deal.Amount, target.Deal.Amount; a != nil && b != nil && *a == *b {
		c.add(w.Amount, "amount exact")
	}

	if mode == ScoreModeRelaxed && nameExact && phoneExact {
		s.applyOverride(c)
	}

	return c
}

func (s *Scorer) scoreTemporal(c *MatchCandidate, delta time.Duration, mode ScoreMode) {
	w := s.weights
	secs := int64(delta / time.Second)
	switch {
	case delta < time.Hour:
		c.add(w.Within1h, fmt.Sprintf("temporal(<1h, %ds)", secs))
	case delta < 24*time.Hour:
		c.add(w.Within24h, fmt.Sprintf("temporal(<24h, %ds)", secs))
	case delta < 48*time.Hour:
		c.add(w.Within48h, fmt.Sprintf("temporal(<48h, %ds)", secs))
	case mode == ScoreModeRelaxed && delta < 30*24*time.Hour:
		c.add(w.Within30d, fmt.Sprintf("temporal(<30d, %ds)", secs))
	}
}

// applyOverride guarantees name+phone corroboration is never under-ranked by timing
func (s *Scorer) applyOverride(c *MatchCandidate) {
	floor := s.weights.Override
	marker := fmt.Sprintf("name+phone override(%g)", floor)

	switch s.override {
	case OverrideModeReplace:
		c.Score = floor
		c.Details = []string{marker}
	default:
		if c.Score < floor {
			c.Score = floor
			c.Details = []string{marker}
		}
	}
}

func (c *MatchCandidate) add(points float64, detail string) {
	if points == 0 {
		return
	}
	c.Score += points
	c.Details = append(c.Details, detail)
}
