// Package normalizers provides identifier and text normalization for record matching
package normalizers

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	// Register built-in normalizers
	Register("lowercase", Lowercase)
	Register("trim", Trim)
	Register("fold_accents", FoldAccents)
	Register("digits_only", DigitsOnly)
	Register("nphone", NormalizePhone)
	Register("nname", NormalizeName)
	Register("naddress", NormalizeAddress)
	Register("nstage", NormalizeStage)
	Register("nsecondary", ExtractSecondaryID)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

// Built-in normalizers

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// FoldAccents strips combining marks, so "María" becomes "Maria"
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// DigitsOnly keeps only digit characters
func DigitsOnly(s string) string {
	var result strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// NormalizeName normalizes a person's name for matching
// - Lowercase
// - Accents folded
// - Punctuation removed
// - Whitespace collapsed
func NormalizeName(s string) string {
	s = strings.ToLower(FoldAccents(s))

	var result strings.Builder
	prevSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
			prevSpace = false
		} else if unicode.IsSpace(r) {
			if !prevSpace {
				result.WriteRune(' ')
				prevSpace = true
			}
		}
	}

	return strings.TrimSpace(result.String())
}

// addressAbbreviations are applied in order on whole words
var addressAbbreviations = []struct {
	pattern *regexp.Regexp
	abbr    string
}{
	{regexp.MustCompile(`\bcalle\b`), "cl"},
	{regexp.MustCompile(`\bcll\b`), "cl"},
	{regexp.MustCompile(`\bcarrera\b`), "cra"},
	{regexp.MustCompile(`\bkr\b`), "cra"},
	{regexp.MustCompile(`\bavenida\b`), "av"},
	{regexp.MustCompile(`\bdiagonal\b`), "dg"},
	{regexp.MustCompile(`\btransversal\b`), "tv"},
	{regexp.MustCompile(`\bapartamento\b`), "apto"},
	{regexp.MustCompile(`\bbarrio\b`), "br"},
	{regexp.MustCompile(`\bnumero\b|\bno\b`), "#"},
}

var spaceRe = regexp.MustCompile(`\s+`)

// NormalizeAddress normalizes an address string
func NormalizeAddress(s string) string {
	s = strings.ToLower(FoldAccents(s))
	s = strings.NewReplacer(".", " ", ",", " ", "-", " ", "#", " # ").Replace(s)

	for _, a := range addressAbbreviations {
		s = a.pattern.ReplaceAllString(s, a.abbr)
	}

	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// defaultStageAliases maps accented duplicate stage labels to their canonical spelling
var defaultStageAliases = map[string]string{
	"Pendiente de Envío": "Pendiente de Envio",
}

// StageNormalizer collapses duplicate stage spellings to one canonical label
type StageNormalizer struct {
	aliases map[string]string
}

// NewStageNormalizer creates a stage normalizer from alias -> canonical pairs
func NewStageNormalizer(aliases map[string]string) *StageNormalizer {
	copied := make(map[string]string, len(aliases))
	for k, v := range aliases {
		copied[k] = v
	}
	return &StageNormalizer{aliases: copied}
}

// Normalize returns the canonical label, or the label itself when it has no alias
func (n *StageNormalizer) Normalize(label string) string {
	if canonical, ok := n.aliases[label]; ok {
		return canonical
	}
	return label
}

var defaultStages = NewStageNormalizer(defaultStageAliases)

// NormalizeStage normalizes a stage label with the default aliases
func NormalizeStage(label string) string {
	return defaultStages.Normalize(label)
}

// DefaultStageAliases returns a copy of the built-in stage aliases
func DefaultStageAliases() map[string]string {
	copied := make(map[string]string, len(defaultStageAliases))
	for k, v := range defaultStageAliases {
		copied[k] = v
	}
	return copied
}
