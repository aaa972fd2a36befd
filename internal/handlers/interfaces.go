package handlers

import (
	"log"
	"net/http"

	"tailrouter/internal/middleware"
	"tailrouter/internal/models"
	"tailrouter/internal/services"

	"github.com/go-chi/chi/v5"
)

type InterfacesHandler struct {
	templates      TemplateExecutor
	netlinkService *services.NetlinkService
}

func NewInterfacesHandler(templates TemplateExecutor, netlinkService *services.NetlinkService) *InterfacesHandler {
	return &InterfacesHandler{
		templates:      templates,
		netlinkService: netlinkService,
	}
}

type interfaceWithStats struct {
	models.NetworkInterface
	Stats *models.InterfaceStats
}

func (h *InterfacesHandler) List(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"Title":      "Network Interfaces",
		"ActivePage": "interfaces",
		"User":       middleware.GetUser(r),
		"Interfaces": h.listWithStats(),
	}

	if err := h.templates.ExecuteTemplate(w, "interfaces.html", data); err != nil {
		log.Printf("Template error: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (h *InterfacesHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"Interfaces": h.listWithStats(),
	}

	if err := h.templates.ExecuteTemplate(w, "interface_table.html", data); err != nil {
		log.Printf("Template error: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (h *InterfacesHandler) Detail(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	iface, err := h.netlinkService.GetInterface(name)
	if err != nil {
		http.Error(w, "Interface not found", http.StatusNotFound)
		return
	}

	stats, _ := h.netlinkService.GetStats(name)

	data := map[string]interface{}{
		"Title":      "Interface: " + name,
		"ActivePage": "interfaces",
		"User":       middleware.GetUser(r),
		"Interface":  iface,
		"Stats":      stats,
	}

	if err := h.templates.ExecuteTemplate(w, "interface_detail.html", data); err != nil {
		log.Printf("Template error: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (h *InterfacesHandler) listWithStats() []interfaceWithStats {
	interfaces, err := h.netlinkService.ListInterfaces()
	if err != nil {
		log.Printf("Failed to list interfaces: %v", err)
		interfaces = []models.NetworkInterface{}
	}

	var result []interfaceWithStats
	for _, iface := range interfaces {
		stats, _ := h.netlinkService.GetStats(iface.Name)
		result = append(result, interfaceWithStats{
			NetworkInterface: iface,
			Stats:            stats,
		})
	}
	return result
}
