package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/license-inventory/app"
	"github.com/upb/license-inventory/handlers"
	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()
	logger := deps.Logger
	cfg := deps.Config

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	health := handlers.NewHealthHandler(deps.DB, deps.AuditService, logger)
	authH := handlers.NewAuthHandler(deps.Auth, cfg.Server.CookieSecure, logger)
	licenseH := handlers.NewLicenseHandler(deps.Licenses, deps.Seats, logger)
	seatH := handlers.NewSeatHandler(deps.Seats, logger)
	employeeH := handlers.NewEmployeeHandler(deps.Employees, logger)
	assignmentH := handlers.NewAssignmentHandler(deps.Assignments, logger)
	groupH := handlers.NewGroupHandler(deps.Groups, logger)
	importH := handlers.NewImportHandler(deps.Importer, cfg.Import.MaxUploadBytes, logger)
	dashboardH := handlers.NewDashboardHandler(deps.Dashboard, logger)
	historyH := handlers.NewHistoryHandler(deps.History, logger)
	orgH := handlers.NewOrgHandler(deps.Org, logger)
	userH := handlers.NewUserHandler(deps.Users, logger)
	renewalH := handlers.NewRenewalHandler(deps.Renewal, logger)

	// Health check endpoints
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/auth/login", authH.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)

			r.Post("/auth/logout", authH.HandleLogout)
			r.Get("/auth/me", authH.HandleMe)

			r.Route("/licenses", func(r chi.Router) {
				r.Get("/", licenseH.HandleList)
				r.Post("/", licenseH.HandleCreate)
				r.Get("/{id}", licenseH.HandleGet)
				r.Put("/{id}", licenseH.HandleUpdate)
				r.Delete("/{id}", licenseH.HandleDelete)
				r.Get("/{id}/seats", licenseH.HandleListSeats)
			})

			r.Route("/seats", func(r chi.Router) {
				r.Get("/check-key", seatH.HandleCheckKey)
				r.Put("/{id}/key", seatH.HandleUpdateKey)
			})

			r.Route("/employees", func(r chi.Router) {
				r.Get("/", employeeH.HandleList)
				r.Post("/", employeeH.HandleCreate)
				r.Get("/{id}", employeeH.HandleGet)
				r.Put("/{id}", employeeH.HandleUpdate)
				r.Delete("/{id}", employeeH.HandleDelete)
				r.Post("/{id}/assignments", assignmentH.HandleAssign)
				r.Post("/{id}/unassign", assignmentH.HandleUnassign)
			})

			r.Route("/assignments", func(r chi.Router) {
				r.Get("/", assignmentH.HandleList)
				r.Post("/{id}/return", assignmentH.HandleReturn)
				r.Delete("/{id}", assignmentH.HandleDelete)
			})

			r.Route("/groups", func(r chi.Router) {
				r.Get("/", groupH.HandleList)
				r.Post("/", groupH.HandleCreate)
				r.Get("/{id}", groupH.HandleGet)
				r.Put("/{id}", groupH.HandleUpdate)
				r.Delete("/{id}", groupH.HandleDelete)
				r.Post("/{id}/members", groupH.HandleAddMembers)
				r.Delete("/{id}/members", groupH.HandleRemoveMembers)
			})

			r.Route("/import/{kind}", func(r chi.Router) {
				r.Post("/", importH.HandleImport)
				r.Get("/template", importH.HandleTemplate)
			})

			r.Post("/cost/preview", dashboardH.HandleCostPreview)
			r.Get("/dashboard", dashboardH.HandleSummary)
			r.Get("/history", historyH.HandleSearch)

			r.Route("/org", func(r chi.Router) {
				r.Get("/companies", orgH.HandleListCompanies)
				r.Post("/companies", orgH.HandleCreateCompany)
				r.Get("/units", orgH.HandleListUnits)
				r.Post("/units", orgH.HandleCreateUnit)
			})

			// Admin only
			r.Group(func(r chi.Router) {
				r.Use(deps.AuthMiddleware.RequireRole(models.RoleAdmin))

				r.Post("/renewals/sync", renewalH.HandleSync)
				r.Post("/licenses/{id}/renewal/sync", renewalH.HandleSyncLicense)

				r.Route("/users", func(r chi.Router) {
					r.Get("/", userH.HandleList)
					r.Post("/", userH.HandleCreate)
					r.Put("/{id}", userH.HandleUpdate)
					r.Put("/{id}/password", userH.HandleChangePassword)
					r.Post("/{id}/toggle-active", userH.HandleToggleActive)
					r.Delete("/{id}", userH.HandleDelete)
				})
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	return r
}
