package handlers

import (
	"net/http"

	"github.com/janitarr/janitarr/internal/controllers"
	"github.com/sirupsen/logrus"
)

// IssuesHandler serves classified issue reports
type IssuesHandler struct {
	issuesCtrl  *controllers.IssuesController
	defaultUser string
	logger      *logrus.Logger
}

// NewIssuesHandler creates a new issues handler
func NewIssuesHandler(issuesCtrl *controllers.IssuesController, defaultUser string, logger *logrus.Logger) *IssuesHandler {
	return &IssuesHandler{
		issuesCtrl:  issuesCtrl,
		defaultUser: defaultUser,
		logger:      logger,
	}
}

// List classifies the current snapshot, optionally filtered by category
func (h *IssuesHandler) List(w http.ResponseWriter, r *http.Request) {
	report, err := h.issuesCtrl.Classify(userID(r, h.defaultUser), r.URL.Query().Get("filter"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}
