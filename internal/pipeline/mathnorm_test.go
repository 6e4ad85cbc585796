package pipeline

import (
	"context"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestNormalizeMath - Line classification and rewriting
// ---------------------------------------------------------------------------

func TestNormalizeMath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "mixed brief",
			input:    "Kinetic Energy: (1/2 * m * v^2)\nThis is plain text.\nF = ma",
			expected: "Kinetic Energy:\n$$1/2 * m * v^2$$\nThis is plain text.\n$$F = ma$$",
		},
		{
			name:     "blank line preserved",
			input:    "A\n\nB",
			expected: "A\n\nB",
		},
		{
			name:     "whitespace-only line emitted empty",
			input:    "A\n  \t \nB",
			expected: "A\n\nB",
		},
		{
			name:     "CRLF normalized",
			input:    "Intro\r\nF = ma\r\n",
			expected: "Intro\n$$F = ma$$\n",
		},
		{
			name:     "lone CR normalized",
			input:    "Intro\rF = ma",
			expected: "Intro\n$$F = ma$$",
		},
		{
			name:     "display math passes verbatim",
			input:    "  $$x^2$$  ",
			expected: "  $$x^2$$  ",
		},
		{
			name:     "inline math passes verbatim",
			input:    "$a_1$ is the first term",
			expected: "$a_1$ is the first term",
		},
		{
			name:     "bare formula with trailing paren",
			input:    "E = mc^2)",
			expected: "$$E = mc^2$$",
		},
		{
			name:     "latex command",
			input:    `\frac{a}{b}`,
			expected: `$$\frac{a}{b}$$`,
		},
		{
			name:     "labeled formula with unbalanced close",
			input:    "Momentum: (p = m v))",
			expected: "Momentum:\n$$p = m v$$",
		},
		{
			name:     "labeled formula with latex",
			input:    `Area of circle: (\pi r^2)`,
			expected: "Area of circle:\n" + `$$\pi r^2$$`,
		},
		{
			name:     "label trimmed",
			input:    "   Work   :  (W = F d)  ",
			expected: "Work:\n$$W = F d$$",
		},
		{
			name:     "labeled prose left alone",
			input:    "Note: (see chapter three)",
			expected: "Note: (see chapter three)",
		},
		{
			name:     "labeled group not filling the line",
			input:    "Speed: (v = d/t) in m/s",
			expected: "$$Speed: (v = d/t) in m/s$$",
		},
		{
			name:     "markdown heading untouched",
			input:    "## Key formulas",
			expected: "## Key formulas",
		},
		{
			name:     "prose preserves indentation",
			input:    "  - remember the units",
			expected: "  - remember the units",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := NormalizeMath(tt.input)
			if got != tt.expected {
				t.Errorf("NormalizeMath(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeMath_LabeledFormulaYieldsTwoLines(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"Kinetic Energy: (1/2 * m * v^2)",
		"Ohm's law: (V = I R)",
		`Sum: (\sum_{i=1}^n i)`,
		"Density: (rho = m / V)",
	}

	for _, in := range inputs {
		lines := strings.Split(NormalizeMath(in), "\n")
		if len(lines) != 2 {
			t.Errorf("NormalizeMath(%q) produced %d lines, want 2: %q", in, len(lines), lines)
			continue
		}
		if !strings.HasSuffix(lines[0], ":") || strings.Contains(lines[0], "$") {
			t.Errorf("label line = %q, want bare label ending in colon", lines[0])
		}
		if !strings.HasPrefix(lines[1], "$$") || !strings.HasSuffix(lines[1], "$$") {
			t.Errorf("formula line = %q, want $$-delimited", lines[1])
		}
	}
}

func TestNormalizeMath_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"Kinetic Energy: (1/2 * m * v^2)\nThis is plain text.\nF = ma",
		"$$a^2 + b^2 = c^2$$\n\nPythagoras\n$x_1$",
		"Newton's second law: (F = m a))\r\n\r\nIntegral: (\\int_0^1 x dx)",
	}

	for _, in := range inputs {
		once := NormalizeMath(in)
		twice := NormalizeMath(once)
		if once != twice {
			t.Errorf("NormalizeMath not idempotent for %q:\nonce:  %q\ntwice: %q", in, once, twice)
		}
	}
}

func TestNormalizeMath_LineCountPreservedForUnlabeled(t *testing.T) {
	t.Parallel()

	in := "a\n\nx^2\n$$y$$\nplain\n"
	got := NormalizeMath(in)
	if strings.Count(got, "\n") != strings.Count(in, "\n") {
		t.Errorf("line count changed: %q -> %q", in, got)
	}
}

// ---------------------------------------------------------------------------
// TestLooksLikeMath - Heuristic predicates
// ---------------------------------------------------------------------------

func TestLooksLikeMath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		want bool
	}{
		{`\alpha + \beta`, true},
		{"x_1 + x_2", true},
		{"v^2", true},
		{"e^{i\\pi}", true},
		{"F = ma", true},
		{"y=2x", true},
		{`a \cdot b`, true},
		{`a \times b`, true},
		{"snake_case identifier", true}, // accepted false positive
		{"This is plain text.", false},
		{"1 + 1 = 2", false},
		{"Chapter 3: Thermodynamics", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := LooksLikeMath(tt.line); got != tt.want {
			t.Errorf("LooksLikeMath(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// TestNormalizeFormulaExpression - Parenthesis cleanup
// ---------------------------------------------------------------------------

func TestNormalizeFormulaExpression(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "one extra trailing paren", input: "(a + b))", expected: "(a + b)"},
		{name: "unmatched trailing paren", input: "E = mc^2)", expected: "E = mc^2"},
		{name: "two unmatched trailing parens", input: "E = mc^2))", expected: "E = mc^2"},
		{name: "balanced product untouched", input: "(a+b)*(c+d)", expected: "(a+b)*(c+d)"},
		{name: "enclosing pair stripped", input: "(1/2 * m * v^2)", expected: "1/2 * m * v^2"},
		{name: "only one enclosing pair stripped", input: "((x))", expected: "(x)"},
		{name: "surrounding space trimmed", input: "  ( F = ma )  ", expected: "F = ma"},
		{name: "space before stray paren trimmed", input: "x^2 )", expected: "x^2"},
		{name: "leading open paren kept", input: "((a)", expected: "((a)"},
		{name: "interior parens kept", input: "f(x) = g(h(x))", expected: "f(x) = g(h(x))"},
		{name: "trailing non-paren stops", input: "a) + b", expected: "a) + b"},
		{name: "empty", input: "", expected: ""},
		{name: "lone close paren", input: ")", expected: ""},
		{name: "empty pair", input: "()", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := NormalizeFormulaExpression(tt.input)
			if got != tt.expected {
				t.Errorf("NormalizeFormulaExpression(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestMathNormalizer_PreprocessMarkdown(t *testing.T) {
	t.Parallel()

	n := &MathNormalizer{}

	got := n.PreprocessMarkdown(context.Background(), "F = ma")
	if got != "$$F = ma$$" {
		t.Errorf("PreprocessMarkdown() = %q, want %q", got, "$$F = ma$$")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := n.PreprocessMarkdown(ctx, "F = ma"); got != "F = ma" {
		t.Errorf("PreprocessMarkdown(canceled) = %q, want input unchanged", got)
	}
}

func FuzzNormalizeMath(f *testing.F) {
	f.Add("Kinetic Energy: (1/2 * m * v^2)\nThis is plain text.\nF = ma")
	f.Add("((((")
	f.Add("))))")
	f.Add(":\r\n:()")

	f.Fuzz(func(t *testing.T, raw string) {
		out := NormalizeMath(raw)
		if strings.Contains(out, "\r") {
			t.Fatalf("carriage return survived normalization: %q", out)
		}
		if strings.TrimSpace(raw) == "" && strings.TrimSpace(out) != "" {
			t.Fatalf("blank input produced content: %q", out)
		}
	})
}
