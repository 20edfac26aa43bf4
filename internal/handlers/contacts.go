package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"freeturn/internal/database"
)

// ContactHandler serves the CRM's people and organizations.
type ContactHandler struct {
	db     *database.DB
	logger *slog.Logger
}

// NewContactHandler creates a new contact handler
func NewContactHandler(db *database.DB, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{db: db, logger: logger}
}

// GetPeople handles GET /api/people
func (h *ContactHandler) GetPeople(w http.ResponseWriter, r *http.Request) {
	people, err := h.db.People.List()
	if err != nil {
		h.logger.Error("Failed to list people", "error", err)
		http.Error(w, "Failed to list people", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(people)
}

// GetOrganizations handles GET /api/organizations
func (h *ContactHandler) GetOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.db.Organizations.List()
	if err != nil {
		h.logger.Error("Failed to list organizations", "error", err)
		http.Error(w, "Failed to list organizations", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(orgs)
}
