package revbrief

import "github.com/alnah/go-revbrief/internal/pipeline"

// Normalize rewrites formula-like lines of generated text into $$ display
// math and leaves prose untouched. It never fails.
//
//	Normalize("Kinetic Energy: (1/2 * m * v^2)\nThis is plain text.\nF = ma")
//	// Kinetic Energy:
//	// $$1/2 * m * v^2$$
//	// This is plain text.
//	// $$F = ma$$
func Normalize(raw string) string {
	return pipeline.NormalizeMath(raw)
}

// LooksLikeMath reports whether a line would be treated as a formula.
func LooksLikeMath(line string) bool {
	return pipeline.LooksLikeMath(line)
}

// NormalizeFormulaExpression cleans a single formula: it trims it, unwraps
// one enclosing pair of parentheses and drops unmatched trailing ")".
func NormalizeFormulaExpression(expr string) string {
	return pipeline.NormalizeFormulaExpression(expr)
}
