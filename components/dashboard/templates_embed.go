package dashboard

import (
	"embed"

	template "github.com/goliatone/go-template"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

// PageTemplate names the embedded dashboard page.
const PageTemplate = "dashboard"

// NewTemplateRenderer creates a go-template renderer backed by the embedded
// page templates. Pair it with ControllerOptions.Template = PageTemplate.
func NewTemplateRenderer() (Renderer, error) {
	return template.NewRenderer(
		template.WithFS(embeddedTemplates),
		template.WithBaseDir("templates"),
		template.WithExtension(".html"),
	)
}
