package pipeline

import (
	"context"
	"regexp"
	"strings"
)

// Math delimiters understood by the Markdown renderer. A line whose trimmed
// form starts with InlineMathDelimiter (which also covers DisplayMathDelimiter)
// is treated as already typeset.
const (
	DisplayMathDelimiter = "$$"
	InlineMathDelimiter  = "$"
)

var (
	// Line ending normalization
	crlfOrCR = regexp.MustCompile(`\r\n?`)

	// "Label: (expression)" with the parenthesized group filling the rest of the line.
	labeledFormula = regexp.MustCompile(`^([^:]+):\s*\((.+)\)\s*$`)

	// mathPredicates are OR-ed by LooksLikeMath, in order.
	mathPredicates = []*regexp.Regexp{
		regexp.MustCompile(`\\[a-zA-Z]+`),                  // \alpha, \frac
		regexp.MustCompile(`[_^]\{?[\w\\+-]+\}?`),          // x_1, v^2, e^{i\pi}
		regexp.MustCompile(`[A-Za-z]\s*=\s*[A-Za-z0-9\\]`), // F = ma
		regexp.MustCompile(`\\cdot|\\times|\\frac|\\sum|\\int`),
	}
)

// MarkdownPreprocessor defines the contract for markdown preprocessing.
type MarkdownPreprocessor interface {
	PreprocessMarkdown(ctx context.Context, content string) string
}

// MathNormalizer rewrites formula-like lines into display math.
type MathNormalizer struct{}

// PreprocessMarkdown normalizes content unless ctx is already done.
func (n *MathNormalizer) PreprocessMarkdown(ctx context.Context, content string) string {
	if ctx.Err() != nil {
		return content
	}
	return NormalizeMath(content)
}

// NormalizeMath classifies every line of raw as prose or formula and returns
// markup in which each formula is exactly one $$-delimited line.
//
// Rules, first match wins:
//   - whitespace-only line: emitted empty
//   - line starting with $ or $$: emitted verbatim
//   - "Label: (expr)" with math-like expr: "Label:" then "$$expr$$"
//   - math-like line: "$$line$$"
//   - anything else: emitted verbatim
//
// NormalizeMath never fails; misclassified prose is accepted as a false positive.
func NormalizeMath(raw string) string {
	lines := strings.Split(normalizeLineEndings(raw), "\n")
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			out = append(out, "")
			continue
		}

		if strings.HasPrefix(trimmed, InlineMathDelimiter) {
			out = append(out, line)
			continue
		}

		if m := labeledFormula.FindStringSubmatch(trimmed); m != nil && LooksLikeMath(m[2]) {
			out = append(out,
				strings.TrimSpace(m[1])+":",
				displayMath(NormalizeFormulaExpression(m[2])),
			)
			continue
		}

		if LooksLikeMath(trimmed) {
			out = append(out, displayMath(NormalizeFormulaExpression(trimmed)))
			continue
		}

		out = append(out, line)
	}

	return strings.Join(out, "\n")
}

// LooksLikeMath reports whether line contains a LaTeX command, a sub- or
// superscript, an assignment such as "F = ma", or a named math operator.
// It is a heuristic and deliberately over-accepts.
func LooksLikeMath(line string) bool {
	for _, p := range mathPredicates {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

// NormalizeFormulaExpression trims expr, removes one pair of parentheses that
// encloses the whole expression, then drops trailing ")" one at a time while
// closing parentheses outnumber opening ones. Interior parentheses and the
// front of the expression are never touched.
func NormalizeFormulaExpression(expr string) string {
	out := strings.TrimSpace(expr)

	if enclosedByParens(out) {
		out = strings.TrimSpace(out[1 : len(out)-1])
	}

	for strings.HasSuffix(out, ")") && strings.Count(out, ")") > strings.Count(out, "(") {
		out = strings.TrimSpace(out[:len(out)-1])
	}

	return out
}

// enclosedByParens reports whether s opens with "(" whose matching ")" is the
// last byte. "(a+b)*(c+d)" is not enclosed; "((a+b)*(c+d))" is.
func enclosedByParens(s string) bool {
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return false
	}
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i < len(s)-1 {
				return false
			}
		}
	}
	return depth == 0
}

func displayMath(expr string) string {
	return DisplayMathDelimiter + expr + DisplayMathDelimiter
}

// normalizeLineEndings converts \r\n and \r to \n.
func normalizeLineEndings(content string) string {
	return crlfOrCR.ReplaceAllString(content, "\n")
}
