package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"freeturn/internal/database"
	"freeturn/internal/lifecycle"
)

// ProjectHandler handles HTTP requests for projects and their lifecycle.
type ProjectHandler struct {
	db     *database.DB
	engine *lifecycle.Engine
	logger *slog.Logger
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(db *database.DB, engine *lifecycle.Engine, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{db: db, engine: engine, logger: logger}
}

// projectResponse decorates a project with its display color and the
// transitions currently available from its state.
type projectResponse struct {
	*database.Project
	StateColor           string   `json:"state_color"`
	AvailableTransitions []string `json:"available_transitions"`
}

func newProjectResponse(p *database.Project) projectResponse {
	transitions := []string{}
	for _, t := range lifecycle.AvailableFrom(p.State) {
		transitions = append(transitions, t.Name)
	}
	return projectResponse{
		Project:              p,
		StateColor:           lifecycle.StateColor(p.State),
		AvailableTransitions: transitions,
	}
}

// GetProjects handles GET /api/projects with an optional ?state= filter.
func (h *ProjectHandler) GetProjects(w http.ResponseWriter, r *http.Request) {
	var projects []database.Project
	var err error

	if state := r.URL.Query().Get("state"); state != "" {
		if !lifecycle.ValidState(state) {
			http.Error(w, fmt.Sprintf("Unknown state: %s", state), http.StatusBadRequest)
			return
		}
		projects, err = h.db.Projects.ListByState(state)
	} else {
		projects, err = h.db.Projects.List()
	}
	if err != nil {
		h.logger.Error("Failed to list projects", "error", err)
		http.Error(w, "Failed to list projects", http.StatusInternalServerError)
		return
	}

	response := make([]projectResponse, 0, len(projects))
	for i := range projects {
		response = append(response, newProjectResponse(&projects[i]))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// GetProjectByID handles GET /api/projects/{id}
func (h *ProjectHandler) GetProjectByID(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadProject(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(newProjectResponse(project))
}

// GetProjectMessages handles GET /api/projects/{id}/messages
func (h *ProjectHandler) GetProjectMessages(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadProject(w, r)
	if !ok {
		return
	}

	messages, err := h.db.Messages.ListByProject(project.ID)
	if err != nil {
		h.logger.Error("Failed to list messages", "project_id", project.ID, "error", err)
		http.Error(w, "Failed to list messages", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(messages)
}

// transitionResponse reports an applied transition. A dispatch warning means
// the state changed but the templated reply was not delivered.
type transitionResponse struct {
	Project         projectResponse `json:"project"`
	Transition      string          `json:"transition"`
	Dispatched      bool            `json:"dispatched"`
	DispatchWarning string          `json:"dispatch_warning,omitempty"`
}

// ApplyTransition handles POST /api/projects/{id}/transitions/{name}
func (h *ProjectHandler) ApplyTransition(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "Invalid project ID", http.StatusBadRequest)
		return
	}
	name := chi.URLParam(r, "name")

	result, err := h.engine.Apply(id, name)
	if err != nil {
		var illegal *lifecycle.IllegalTransitionError
		switch {
		case errors.Is(err, lifecycle.ErrUnknownTransition),
			errors.Is(err, lifecycle.ErrProjectNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.As(err, &illegal):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.logger.Error("Failed to apply transition",
				"project_id", id, "transition", name, "error", err)
			http.Error(w, "Failed to apply transition", http.StatusInternalServerError)
		}
		return
	}

	response := transitionResponse{
		Project:    newProjectResponse(result.Project),
		Transition: result.Transition.Name,
		Dispatched: result.Dispatched,
	}
	if result.DispatchWarning != nil {
		response.DispatchWarning = result.DispatchWarning.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// loadProject resolves the {id} path parameter to a project, writing the
// error response itself when it cannot.
func (h *ProjectHandler) loadProject(w http.ResponseWriter, r *http.Request) (*database.Project, bool) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "Invalid project ID", http.StatusBadRequest)
		return nil, false
	}

	project, err := h.db.Projects.GetByID(id)
	if err != nil {
		h.logger.Error("Failed to get project", "project_id", id, "error", err)
		http.Error(w, "Failed to get project", http.StatusInternalServerError)
		return nil, false
	}
	if project == nil {
		http.Error(w, "Project not found", http.StatusNotFound)
		return nil, false
	}
	return project, true
}

func parseID(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}
