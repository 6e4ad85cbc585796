package pipeline

import (
	"context"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// HTMLSanitizer defines the contract for cleaning generated HTML fragments.
type HTMLSanitizer interface {
	SanitizeHTML(ctx context.Context, fragment string) string
}

// mathMLElements are the presentation MathML elements emitted by the math renderer.
var mathMLElements = []string{
	"math", "semantics", "annotation", "mrow", "mi", "mn", "mo", "mtext",
	"mspace", "ms", "msup", "msub", "msubsup", "mfrac", "msqrt", "mroot",
	"mover", "munder", "munderover", "mtable", "mtr", "mtd", "mstyle",
	"mpadded", "mphantom", "menclose", "merror",
}

var mathMLAttrs = []string{
	"display", "xmlns", "mathvariant", "stretchy", "fence", "separator",
	"lspace", "rspace", "accent", "accentunder", "linethickness",
	"columnalign", "rowalign", "columnspacing", "rowspacing",
	"displaystyle", "scriptlevel", "width", "height", "depth", "encoding",
	"largeop", "movablelimits", "symmetric", "form", "minsize", "maxsize",
	"notation", "voffset",
}

// Class names from the highlighter and the renderer are plain identifiers.
var classNames = regexp.MustCompile(`^[\w\s-]+$`)

// BluemondaySanitizer strips scripts, event handlers and unknown markup from
// generated briefs while keeping GFM, highlighted code and MathML.
type BluemondaySanitizer struct {
	policy *bluemonday.Policy
}

// NewBluemondaySanitizer builds the brief policy on top of bluemonday's UGC policy.
func NewBluemondaySanitizer() *BluemondaySanitizer {
	p := bluemonday.UGCPolicy()

	// Most MathML nodes carry no attributes; bluemonday drops those unless
	// they are registered with AllowNoAttrs.
	p.AllowNoAttrs().OnElements(mathMLElements...)
	p.AllowAttrs(mathMLAttrs...).OnElements(mathMLElements...)
	p.AllowAttrs("class").Matching(classNames).Globally()

	// GFM task lists
	p.AllowAttrs("type").Matching(regexp.MustCompile(`^checkbox$`)).OnElements("input")
	p.AllowAttrs("checked", "disabled").OnElements("input")

	return &BluemondaySanitizer{policy: p}
}

// SanitizeHTML returns the cleaned fragment, or an empty string if ctx is done.
func (s *BluemondaySanitizer) SanitizeHTML(ctx context.Context, fragment string) string {
	if ctx.Err() != nil {
		return ""
	}
	return s.policy.Sanitize(fragment)
}
