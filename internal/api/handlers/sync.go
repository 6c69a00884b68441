package handlers

import (
	"net/http"

	"github.com/janitarr/janitarr/internal/controllers"
	"github.com/sirupsen/logrus"
)

// SyncHandler handles sync trigger and status requests
type SyncHandler struct {
	syncCtrl    *controllers.SyncController
	defaultUser string
	logger      *logrus.Logger
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(syncCtrl *controllers.SyncController, defaultUser string, logger *logrus.Logger) *SyncHandler {
	return &SyncHandler{
		syncCtrl:    syncCtrl,
		defaultUser: defaultUser,
		logger:      logger,
	}
}

// Trigger runs a sync for the acting user
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	user := userID(r, h.defaultUser)

	result, err := h.syncCtrl.Sync(r.Context(), user)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Status reports the acting user's sync state
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	state, err := h.syncCtrl.Status(userID(r, h.defaultUser))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}
