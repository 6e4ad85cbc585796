// Package pipeline turns generated brief text into a self-contained HTML page
// ready to be laid out and captured by a browser.
//
// Stages:
//   - Math normalization: classify each line as prose or formula and wrap
//     formulas in $$ display-math delimiters
//   - Markdown to HTML via Goldmark (GFM, syntax highlighting, LaTeX to MathML)
//   - Sanitization of the generated fragment (bluemonday, MathML allowlist)
//   - Preview page assembly: stylesheet plus a fixed-width preview container
//
// Rasterization and pagination live in the root revbrief package; this package
// never touches a browser.
package pipeline
