package fingerprint

import (
	"strings"

	"github.com/google/uuid"
)

// IDStrategy selects how output ids are generated
type IDStrategy string

const (
	// IDStrategyDeterministic derives uuid v5 ids from the ids of the deals involved,
	// so the same snapshot always yields the same group and contact ids
	IDStrategyDeterministic IDStrategy = "deterministic"
	// IDStrategyRandom uses uuid v4
	IDStrategyRandom IDStrategy = "random"
)

// Namespace is the uuid v5 namespace for all derived ids
var Namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/Ramsey-B/clover"))

// IDGenerator creates ids for order groups and contacts
type IDGenerator struct {
	strategy IDStrategy
}

// NewIDGenerator creates an id generator; unknown strategies fall back to deterministic
func NewIDGenerator(strategy IDStrategy) *IDGenerator {
	if strategy != IDStrategyRandom {
		strategy = IDStrategyDeterministic
	}
	return &IDGenerator{strategy: strategy}
}

// Strategy returns the generator's strategy
func (g *IDGenerator) Strategy() IDStrategy {
	return g.strategy
}

// New returns an id for an object of the given kind built from parts.
// Parts are order-sensitive: callers pass them in a fixed slot order.
func (g *IDGenerator) New(kind string, parts ...string) string {
	if g.strategy == IDStrategyRandom {
		return uuid.NewString()
	}
	return DeterministicID(kind, parts...)
}

// DeterministicID returns the uuid v5 of kind and parts
func DeterministicID(kind string, parts ...string) string {
	name := kind + ":" + strings.Join(parts, "|")
	return uuid.NewSHA1(Namespace, []byte(name)).String()
}
