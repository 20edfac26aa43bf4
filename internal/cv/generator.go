package cv

import (
	"fmt"
	"log/slog"
	"time"

	"freeturn/internal/database"
)

// Defaults are the boilerplate sections every generated CV starts from,
// configured once per installation.
type Defaults struct {
	FullName           string `mapstructure:"full_name"`
	Title              string `mapstructure:"title"`
	ExperienceOverview string `mapstructure:"experience_overview"`
	EducationOverview  string `mapstructure:"education_overview"`
	ContactDetails     string `mapstructure:"contact_details"`
	LanguagesOverview  string `mapstructure:"languages_overview"`
	RateOverview       string `mapstructure:"rate_overview"`
	WorkingPermit      string `mapstructure:"working_permit"`
}

// Renderer produces the opaque document artifact for a CV. The concrete
// implementation (PDF rendering) lives outside this engine.
type Renderer interface {
	Render(cv *database.CV, project *database.Project) ([]byte, error)
}

// Generator creates CV records for projects, filling them from configured
// defaults and, when a renderer is wired in, attaching the rendered document.
type Generator struct {
	cvs      *database.CVStore
	defaults Defaults
	renderer Renderer // optional
	logger   *slog.Logger
}

// NewGenerator creates a CV generator. renderer may be nil; CV rows are then
// created without a document.
func NewGenerator(cvs *database.CVStore, defaults Defaults, renderer Renderer, logger *slog.Logger) *Generator {
	return &Generator{cvs: cvs, defaults: defaults, renderer: renderer, logger: logger}
}

// Generate creates a new CV for the project.
func (g *Generator) Generate(project *database.Project) (*database.CV, error) {
	now := time.Now().UTC()
	cv := &database.CV{
		ProjectID:          project.ID,
		FullName:           g.defaults.FullName,
		Title:              g.defaults.Title,
		ExperienceOverview: g.defaults.ExperienceOverview,
		EducationOverview:  g.defaults.EducationOverview,
		ContactDetails:     g.defaults.ContactDetails,
		LanguagesOverview:  g.defaults.LanguagesOverview,
		RateOverview:       g.defaults.RateOverview,
		WorkingPermit:      g.defaults.WorkingPermit,
		EarliestAvailable:  &now,
	}

	if g.renderer != nil {
		document, err := g.renderer.Render(cv, project)
		if err != nil {
			return nil, fmt.Errorf("failed to render CV document: %w", err)
		}
		cv.Document = document
	}

	if err := g.cvs.Create(cv); err != nil {
		return nil, err
	}

	g.logger.Info("Generated CV", "project_id", project.ID, "cv_id", cv.ID)
	return cv, nil
}
