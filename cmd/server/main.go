package main

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"tailrouter/internal/auth"
	"tailrouter/internal/config"
	"tailrouter/internal/database"
	"tailrouter/internal/handlers"
	"tailrouter/internal/middleware"
	"tailrouter/internal/services"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// TemplateRegistry holds separate template instances for each page
type TemplateRegistry struct {
	templates map[string]*template.Template
	funcMap   template.FuncMap
}

func NewTemplateRegistry(funcMap template.FuncMap) *TemplateRegistry {
	return &TemplateRegistry{
		templates: make(map[string]*template.Template),
		funcMap:   funcMap,
	}
}

func (tr *TemplateRegistry) Add(name string, tmpl *template.Template) {
	tr.templates[name] = tmpl
}

func (tr *TemplateRegistry) ExecuteTemplate(w io.Writer, name string, data interface{}) error {
	tmpl, ok := tr.templates[name]
	if ok {
		// A partial file may define a template named without the .html
		// extension; prefer that define when present.
		if strings.HasSuffix(name, ".html") {
			baseName := strings.TrimSuffix(name, ".html")
			if lookup := tmpl.Lookup(baseName); lookup != nil {
				return lookup.Execute(w, data)
			}
		}
		return tmpl.ExecuteTemplate(w, name, data)
	}

	// The registry key might differ from the template name; look for a
	// template set that contains the requested define.
	for _, t := range tr.templates {
		if lookup := t.Lookup(name); lookup != nil {
			return lookup.Execute(w, data)
		}
	}

	return fmt.Errorf("template %s not found", name)
}

func main() {
	cfg := config.Load()

	webDir := getWebDir()
	log.Printf("Using web directory: %s", webDir)

	db, err := database.New(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Services
	userService := auth.NewUserService(db)
	sessionManager := auth.NewSessionManager(cfg.SessionSecret, cfg.SessionMaxAge)
	netlinkService := services.NewNetlinkService()
	statusService := services.NewStatusService(
		cfg.TailscaleInterface, cfg.SysfsNetDir, cfg.IPBin, cfg.TailscaleBin,
		services.NewExecRunner(),
	)

	if err := userService.EnsureDefaultAdmin(cfg.AdminUser, cfg.AdminPassword); err != nil {
		log.Printf("Warning: Failed to create default admin: %v", err)
	}

	templates, err := loadTemplates(filepath.Join(webDir, "templates"))
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(templates, sessionManager, userService)
	statusHandler := handlers.NewStatusHandler(templates, statusService)
	interfacesHandler := handlers.NewInterfacesHandler(templates, netlinkService)
	settingsHandler := handlers.NewSettingsHandler(templates, userService)

	authMiddleware := middleware.NewAuthMiddleware(sessionManager, userService)

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)

	staticDir := filepath.Join(webDir, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))

	// Public routes
	r.Get("/login", authHandler.LoginPage)
	r.Post("/login", authHandler.Login)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)

		r.Post("/logout", authHandler.Logout)

		// Tailscale status (the table polls /api/status)
		r.Get("/", statusHandler.Status)
		r.Get("/api/status", statusHandler.Table)

		// Interfaces (read-only)
		r.Get("/interfaces", interfacesHandler.List)
		r.Get("/interfaces/table", interfacesHandler.GetTable)
		r.Get("/interfaces/{name}", interfacesHandler.Detail)

		// Settings
		r.Get("/settings", settingsHandler.Settings)
		r.Post("/settings/password", settingsHandler.ChangePassword)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("Starting tailrouter GUI on %s", addr)
	log.Printf("Monitoring interface: %s", cfg.TailscaleInterface)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down...")
		os.Exit(0)
	}()

	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func getWebDir() string {
	if dir := os.Getenv("TR_WEB_DIR"); dir != "" {
		return dir
	}

	// Try relative paths from executable
	exe, err := os.Executable()
	if err == nil {
		exeDir := filepath.Dir(exe)

		candidate := filepath.Join(exeDir, "..", "web")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}

		candidate = filepath.Join(exeDir, "..", "..", "web")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	if cwd, err := os.Getwd(); err == nil {
		candidate := filepath.Join(cwd, "web")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "./web"
}

func loadTemplates(templatesDir string) (*TemplateRegistry, error) {
	funcMap := template.FuncMap{
		"formatBytes": formatBytes,
	}

	registry := NewTemplateRegistry(funcMap)

	layoutsDir := filepath.Join(templatesDir, "layouts")
	partialsDir := filepath.Join(templatesDir, "partials")
	pagesDir := filepath.Join(templatesDir, "pages")

	var sharedFiles []string

	layoutFiles, _ := filepath.Glob(filepath.Join(layoutsDir, "*.html"))
	sharedFiles = append(sharedFiles, layoutFiles...)

	partialFiles, _ := filepath.Glob(filepath.Join(partialsDir, "*.html"))
	sharedFiles = append(sharedFiles, partialFiles...)

	pageFiles, err := filepath.Glob(filepath.Join(pagesDir, "*.html"))
	if err != nil {
		return nil, err
	}

	// Each page gets its own template set: shared templates + that page.
	for _, pageFile := range pageFiles {
		pageName := filepath.Base(pageFile)

		tmpl := template.New(pageName).Funcs(funcMap)

		for _, sharedFile := range sharedFiles {
			if err := parseFileInto(tmpl, sharedFile); err != nil {
				return nil, err
			}
		}

		if err := parseFileInto(tmpl, pageFile); err != nil {
			return nil, err
		}

		registry.Add(pageName, tmpl)
	}

	// Partials are also registered standalone for HTMX partial responses.
	for _, partialFile := range partialFiles {
		partialName := filepath.Base(partialFile)

		tmpl := template.New(partialName).Funcs(funcMap)

		for _, pf := range partialFiles {
			if err := parseFileInto(tmpl, pf); err != nil {
				return nil, err
			}
		}

		registry.Add(partialName, tmpl)
	}

	return registry, nil
}

func parseFileInto(tmpl *template.Template, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if _, err := tmpl.Parse(string(content)); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %s", float64(bytes)/float64(div), []string{"KB", "MB", "GB", "TB"}[exp])
}
