package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"freeturn/internal/workers"
)

// SyncHandler triggers mailbox synchronization over the API.
type SyncHandler struct {
	syncer *workers.Syncer
	logger *slog.Logger
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(syncer *workers.Syncer, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{syncer: syncer, logger: logger}
}

// syncResponse summarizes one sync run for API consumers.
type syncResponse struct {
	Processed     int      `json:"processed"`
	Skipped       int      `json:"skipped"`
	Failed        int      `json:"failed"`
	AccountErrors []string `json:"account_errors,omitempty"`
}

// TriggerSync handles POST /api/sync. The run is synchronous; the response
// carries its summary.
func (h *SyncHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	summary, err := h.syncer.Sync(r.Context())
	if err != nil {
		h.logger.Error("Sync failed", "error", err)
		http.Error(w, "Sync failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	response := syncResponse{
		Processed: summary.Processed,
		Skipped:   summary.Skipped,
		Failed:    summary.Failed,
	}
	for _, accountErr := range summary.AccountErrors {
		response.AccountErrors = append(response.AccountErrors, accountErr.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
