package handlers

import (
	"log"
	"net/http"

	"tailrouter/internal/middleware"
	"tailrouter/internal/models"
)

// StatusLoader is the one operation the status page needs: a full refresh
// cycle producing the combined interface + peer report.
type StatusLoader interface {
	Load() models.StatusReport
}

type StatusHandler struct {
	templates TemplateExecutor
	status    StatusLoader
}

func NewStatusHandler(templates TemplateExecutor, status StatusLoader) *StatusHandler {
	return &StatusHandler{
		templates: templates,
		status:    status,
	}
}

// Status renders the full page. The page's status table polls Table on a
// fixed cadence via HTMX; each tick is one independent refresh cycle.
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	data := map[string]interface{}{
		"Title":      "Tailscale Status",
		"ActivePage": "status",
		"User":       user,
		"Report":     h.status.Load(),
	}

	if err := h.templates.ExecuteTemplate(w, "status.html", data); err != nil {
		log.Printf("Template error: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// Table renders just the status table partial for poll ticks.
func (h *StatusHandler) Table(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"Report": h.status.Load(),
	}

	if err := h.templates.ExecuteTemplate(w, "status_table.html", data); err != nil {
		log.Printf("Template error: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
