package lifecycle

import (
	"fmt"
	"log/slog"

	"freeturn/internal/compose"
	"freeturn/internal/database"
	"freeturn/internal/email"
)

// IllegalTransitionError rejects a transition whose declared source does not
// match the project's current state. The state is left untouched and the
// error surfaces to the caller so a UI or automation can react.
type IllegalTransitionError struct {
	ProjectID  int
	Transition string
	State      string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("transition %q is not allowed for project %d in state %q",
		e.Transition, e.ProjectID, e.State)
}

// ErrUnknownTransition is returned for transition names not in the table.
var ErrUnknownTransition = fmt.Errorf("unknown transition")

// ErrProjectNotFound is returned when the transitioned project does not exist.
var ErrProjectNotFound = fmt.Errorf("project not found")

// Result reports one applied transition. DispatchWarning carries a non-fatal
// send or render failure: by then the state change has already committed and
// is never rolled back.
type Result struct {
	Project         *database.Project
	Transition      Transition
	Dispatched      bool
	DispatchWarning error
}

// Engine validates and applies lifecycle transitions and, when a message
// template is bound to the fired transition, composes and dispatches the
// templated reply to the project's manager.
type Engine struct {
	projects  *database.ProjectStore
	people    *database.PersonStore
	orgs      *database.OrganizationStore
	messages  *database.MessageStore
	templates *database.TemplateStore
	composer  *compose.Composer
	sender    email.MailSender // nil when no mail account is configured
	from      string
	logger    *slog.Logger
}

// NewEngine creates a lifecycle engine. The sender may be nil; transitions
// still commit and the missing mail setup is reported as a dispatch warning.
func NewEngine(db *database.DB, composer *compose.Composer, sender email.MailSender, from string, logger *slog.Logger) *Engine {
	return &Engine{
		projects:  db.Projects,
		people:    db.People,
		orgs:      db.Organizations,
		messages:  db.Messages,
		templates: db.Templates,
		composer:  composer,
		sender:    sender,
		from:      from,
		logger:    logger,
	}
}

// Apply fires a named transition on a project. An error means the state did
// not change; a Result with a DispatchWarning means it did, but the outbound
// reply could not be produced or delivered.
func (e *Engine) Apply(projectID int, transitionName string) (*Result, error) {
	transition, ok := FindTransition(transitionName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransition, transitionName)
	}

	project, err := e.projects.GetByID(projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, fmt.Errorf("%w: %d", ErrProjectNotFound, projectID)
	}

	if !transition.allowedFrom(project.State) {
		return nil, &IllegalTransitionError{
			ProjectID:  project.ID,
			Transition: transition.Name,
			State:      project.State,
		}
	}

	if err := e.projects.UpdateState(project.ID, transition.Target); err != nil {
		return nil, err
	}
	project.State = transition.Target

	e.logger.Info("Project transitioned",
		"project_id", project.ID,
		"transition", transition.Name,
		"state", project.State)

	result := &Result{Project: project, Transition: transition}
	result.Dispatched, result.DispatchWarning = e.dispatch(project, transition)
	if result.DispatchWarning != nil {
		e.logger.Warn("Transition reply not sent",
			"project_id", project.ID,
			"transition", transition.Name,
			"error", result.DispatchWarning)
	}
	return result, nil
}

// dispatch sends the templated reply bound to the fired transition, if any.
// All failures here are warnings: the transition has already committed.
func (e *Engine) dispatch(project *database.Project, transition Transition) (bool, error) {
	tmpl, err := e.templates.ForTransition(transition.Name)
	if err != nil {
		return false, err
	}
	if tmpl == nil {
		return false, nil
	}

	if project.ManagerID == 0 {
		return false, &compose.ValidationError{
			Template: tmpl.Name,
			Err:      fmt.Errorf("project has no manager, messages can't be sent"),
		}
	}

	manager, err := e.people.GetByID(project.ManagerID)
	if err != nil {
		return false, err
	}
	if manager == nil {
		return false, &compose.ValidationError{
			Template: tmpl.Name,
			Err:      fmt.Errorf("manager %d not found", project.ManagerID),
		}
	}

	var org *database.Organization
	if project.OrganizationID != 0 {
		if org, err = e.orgs.GetByID(project.OrganizationID); err != nil {
			return false, err
		}
	}

	rendered, err := e.composer.Compose(tmpl, compose.Context{
		Project: project,
		Manager: manager,
		Company: org,
	})
	if err != nil {
		return false, err
	}

	if e.sender == nil {
		return false, &email.DispatchError{
			To:  manager.Email,
			Err: fmt.Errorf("no mail account configured"),
		}
	}

	outbound := &email.OutboundMessage{
		From:       e.from,
		To:         manager.Email,
		Subject:    rendered.Subject,
		HTMLBody:   rendered.HTMLBody,
		Attachment: rendered.Attachment,
	}

	// Reply inside the existing conversation when the project has one.
	latest, err := e.messages.LatestForProject(project.ID)
	if err != nil {
		return false, err
	}
	if latest != nil {
		outbound.ThreadID = latest.GmailThreadID
		outbound.InReplyTo = latest.GmailMessageID
		outbound.Subject = latest.Subject
	}

	if _, err := e.sender.Send(outbound); err != nil {
		return false, &email.DispatchError{To: manager.Email, Err: err}
	}
	return true, nil
}
