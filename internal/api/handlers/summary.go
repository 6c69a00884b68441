package handlers

import (
	"net/http"

	"github.com/janitarr/janitarr/internal/controllers"
	"github.com/sirupsen/logrus"
)

// SummaryHandler serves the dashboard content summary
type SummaryHandler struct {
	summaryCtrl *controllers.SummaryController
	defaultUser string
	logger      *logrus.Logger
}

// NewSummaryHandler creates a new summary handler
func NewSummaryHandler(summaryCtrl *controllers.SummaryController, defaultUser string, logger *logrus.Logger) *SummaryHandler {
	return &SummaryHandler{
		summaryCtrl: summaryCtrl,
		defaultUser: defaultUser,
		logger:      logger,
	}
}

// Get builds the per-category roll-up for the acting user
func (h *SummaryHandler) Get(w http.ResponseWriter, r *http.Request) {
	summary, err := h.summaryCtrl.Summarize(userID(r, h.defaultUser))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}
