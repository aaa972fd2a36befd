package handlers

import (
	"log"
	"net/http"
	"strings"

	"tailrouter/internal/auth"
	"tailrouter/internal/middleware"
)

type SettingsHandler struct {
	templates   TemplateExecutor
	userService *auth.UserService
}

func NewSettingsHandler(templates TemplateExecutor, userService *auth.UserService) *SettingsHandler {
	return &SettingsHandler{
		templates:   templates,
		userService: userService,
	}
}

func (h *SettingsHandler) Settings(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	logins, err := h.userService.RecentLogins(20)
	if err != nil {
		log.Printf("Failed to load login records: %v", err)
	}

	data := map[string]interface{}{
		"Title":      "Settings",
		"ActivePage": "settings",
		"User":       user,
		"Logins":     logins,
	}

	if err := h.templates.ExecuteTemplate(w, "settings.html", data); err != nil {
		log.Printf("Template error: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (h *SettingsHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	if err := r.ParseForm(); err != nil {
		h.renderAlert(w, "error", "Invalid form data")
		return
	}

	current := r.FormValue("current_password")
	newPassword := strings.TrimSpace(r.FormValue("new_password"))
	confirm := r.FormValue("confirm_password")

	if newPassword == "" {
		h.renderAlert(w, "error", "New password is required")
		return
	}
	if newPassword != confirm {
		h.renderAlert(w, "error", "Passwords do not match")
		return
	}

	if _, err := h.userService.Authenticate(user.Username, current); err != nil {
		h.renderAlert(w, "error", "Current password is incorrect")
		return
	}

	if err := h.userService.SetPassword(user.ID, newPassword); err != nil {
		log.Printf("Failed to change password: %v", err)
		h.renderAlert(w, "error", "Failed to change password")
		return
	}

	h.renderAlert(w, "success", "Password changed")
}

func (h *SettingsHandler) renderAlert(w http.ResponseWriter, alertType, message string) {
	data := map[string]interface{}{
		"Type":    alertType,
		"Message": message,
	}
	h.templates.ExecuteTemplate(w, "alert.html", data)
}
