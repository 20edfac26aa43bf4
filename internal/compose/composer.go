package compose

import (
	"bytes"
	"fmt"
	"log/slog"
	"text/template"

	"freeturn/internal/database"
	"freeturn/internal/email"
)

// ValidationError marks a template that failed to render against a project,
// typically because it references fields the context does not expose. It
// prevents dispatch but never rolls back an already-committed transition.
type ValidationError struct {
	Template string
	Err      error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("template %q failed to render: %v", e.Template, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Context is the restricted variable set exposed to message templates:
// exactly the project and its associated manager and company, nothing else.
type Context struct {
	Project *database.Project
	Manager *database.Person
	Company *database.Organization
}

// RenderedMessage is the output of composing a template for a project.
type RenderedMessage struct {
	Subject    string
	HTMLBody   string
	Attachment *email.Attachment
}

// Composer renders message templates against project data.
type Composer struct {
	cvs    *database.CVStore
	logger *slog.Logger
}

// NewComposer creates a message composer.
func NewComposer(cvs *database.CVStore, logger *slog.Logger) *Composer {
	return &Composer{cvs: cvs, logger: logger}
}

// Compose renders the template for the given project. When the template
// requests a CV and the project has one, the most recent CV's document is
// attached.
func (c *Composer) Compose(tmpl *database.MessageTemplate, ctx Context) (*RenderedMessage, error) {
	body, err := render(tmpl, ctx)
	if err != nil {
		return nil, err
	}

	rendered := &RenderedMessage{
		Subject:  ctx.Project.Name,
		HTMLBody: body,
	}

	if tmpl.AttachCV {
		attachment, err := c.latestCVAttachment(ctx.Project.ID)
		if err != nil {
			return nil, err
		}
		rendered.Attachment = attachment
	}

	return rendered, nil
}

// render evaluates the template text against the restricted context. The
// engine is Go text/template: data access only, no code execution.
func render(tmpl *database.MessageTemplate, ctx Context) (string, error) {
	parsed, err := template.New(tmpl.Name).Option("missingkey=error").Parse(tmpl.Text)
	if err != nil {
		return "", &ValidationError{Template: tmpl.Name, Err: err}
	}

	var buf bytes.Buffer
	if err := parsed.Execute(&buf, ctx); err != nil {
		return "", &ValidationError{Template: tmpl.Name, Err: err}
	}
	return buf.String(), nil
}

// latestCVAttachment returns the newest CV document for a project as an
// attachment, or nil when the project has no CV with a rendered document.
func (c *Composer) latestCVAttachment(projectID int) (*email.Attachment, error) {
	cv, err := c.cvs.LatestForProject(projectID)
	if err != nil {
		return nil, err
	}
	if cv == nil || len(cv.Document) == 0 {
		c.logger.Debug("No CV document to attach", "project_id", projectID)
		return nil, nil
	}

	return &email.Attachment{
		Filename:    "cv.pdf",
		ContentType: "application/pdf",
		Data:        cv.Document,
	}, nil
}
