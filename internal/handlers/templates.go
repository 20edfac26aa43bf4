package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"freeturn/internal/database"
	"freeturn/internal/lifecycle"
)

// TemplateHandler manages message templates bound to lifecycle transitions.
type TemplateHandler struct {
	db     *database.DB
	logger *slog.Logger
}

// NewTemplateHandler creates a new template handler
func NewTemplateHandler(db *database.DB, logger *slog.Logger) *TemplateHandler {
	return &TemplateHandler{db: db, logger: logger}
}

// GetTemplates handles GET /api/templates
func (h *TemplateHandler) GetTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.db.Templates.List()
	if err != nil {
		h.logger.Error("Failed to list templates", "error", err)
		http.Error(w, "Failed to list templates", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(templates)
}

// CreateTemplate handles POST /api/templates
func (h *TemplateHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var template database.MessageTemplate
	if err := json.NewDecoder(r.Body).Decode(&template); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if template.Name == "" || template.Text == "" {
		http.Error(w, "Template name and text are required", http.StatusBadRequest)
		return
	}
	if template.StateTransition != "" {
		if _, ok := lifecycle.FindTransition(template.StateTransition); !ok {
			http.Error(w, "Unknown state transition: "+template.StateTransition, http.StatusBadRequest)
			return
		}
	}

	if err := h.db.Templates.Create(&template); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			http.Error(w, "A template is already bound to this transition", http.StatusConflict)
			return
		}
		h.logger.Error("Failed to create template", "error", err)
		http.Error(w, "Failed to create template", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(template)
}
