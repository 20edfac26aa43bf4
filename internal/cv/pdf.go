package cv

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"freeturn/internal/database"
)

// PDFOptions configures the headless browser used for PDF rendering.
type PDFOptions struct {
	Timeout   time.Duration
	NoSandbox bool
}

// DefaultPDFOptions returns sensible defaults for PDF rendering.
func DefaultPDFOptions() *PDFOptions {
	return &PDFOptions{
		Timeout: 30 * time.Second,
	}
}

// PDFRenderer renders CV documents to PDF through a headless browser. Each
// render runs in its own short-lived browser context.
type PDFRenderer struct {
	options *PDFOptions
	tmpl    *template.Template
	logger  *slog.Logger
}

// NewPDFRenderer creates a PDF renderer.
func NewPDFRenderer(options *PDFOptions, logger *slog.Logger) (*PDFRenderer, error) {
	if options == nil {
		options = DefaultPDFOptions()
	}

	tmpl, err := template.New("cv").Parse(cvHTML)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CV template: %w", err)
	}

	return &PDFRenderer{options: options, tmpl: tmpl, logger: logger}, nil
}

// Render produces the PDF document for one CV.
func (r *PDFRenderer) Render(cv *database.CV, project *database.Project) ([]byte, error) {
	var html bytes.Buffer
	if err := r.tmpl.Execute(&html, map[string]any{"CV": cv, "Project": project}); err != nil {
		return nil, fmt.Errorf("failed to render CV markup: %w", err)
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	if r.options.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	ctx, cancel := context.WithTimeout(browserCtx, r.options.Timeout)
	defer cancel()

	var pdf []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html.String()).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to print CV to PDF: %w", err)
	}

	r.logger.Debug("Rendered CV document", "project_id", project.ID, "bytes", len(pdf))
	return pdf, nil
}

const cvHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
body { font-family: Helvetica, Arial, sans-serif; margin: 40px; color: #222; }
h1 { margin-bottom: 0; }
h2 { color: #555; font-weight: normal; margin-top: 4px; }
section { margin-top: 24px; }
section h3 { border-bottom: 1px solid #ddd; padding-bottom: 4px; }
.meta { color: #777; font-size: 0.9em; }
</style>
</head>
<body>
<h1>{{.CV.FullName}}</h1>
<h2>{{.CV.Title}}</h2>
<p class="meta">{{.CV.ContactDetails}}</p>
{{if .CV.ExperienceOverview}}<section><h3>Experience</h3><p>{{.CV.ExperienceOverview}}</p></section>{{end}}
{{if .CV.EducationOverview}}<section><h3>Education</h3><p>{{.CV.EducationOverview}}</p></section>{{end}}
{{if .CV.LanguagesOverview}}<section><h3>Languages</h3><p>{{.CV.LanguagesOverview}}</p></section>{{end}}
{{if .CV.RateOverview}}<section><h3>Rate</h3><p>{{.CV.RateOverview}}</p></section>{{end}}
{{if .CV.WorkingPermit}}<section><h3>Working permit</h3><p>{{.CV.WorkingPermit}}</p></section>{{end}}
<section><h3>Project</h3><p>{{.Project.Name}}{{if .Project.Location}}, {{.Project.Location}}{{end}}</p></section>
</body>
</html>`
