// Package assets embeds the stylesheets and the HTML page template used to
// lay out a revision brief before it is captured.
//
// Directory structure:
//
//	styles/
//	└── {name}.css        # preview styles (brief, compact)
//	templates/
//	    └── {name}.html   # page templates (preview)
//
// Asset names are validated so a name can never escape its directory.
package assets
