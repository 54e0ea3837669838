package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/garnizeh/ats/internal/config"
	"github.com/garnizeh/ats/internal/db"
	"github.com/garnizeh/ats/internal/repository/sqlite"
	"github.com/garnizeh/ats/internal/storage"
)

func SetupRoutes(cfg *config.Config, version, buildTime string, conn *db.DB, resumes *storage.Resumes, queue Enqueuer) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	// Repository
	repo := sqlite.New(conn, logger)

	// Create handlers
	systemHandler := NewSystemHandler(conn.GetConn())
	authHandler := NewAuthHandler(repo, cfg.Sandbox.JWTSecret, cfg.Sandbox.TokenDuration)
	jobsHandler := NewJobsHandler(repo, repo, resumes)
	applicantsHandler := NewApplicantsHandler(repo, repo, resumes, queue)
	mediaHandler := NewMediaHandler(resumes)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	r.HandleFunc("/media/"+storage.Prefix+"/{name}", mediaHandler.Resume).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/login/", authHandler.Login).Methods("POST")
	api.HandleFunc("/auth/register/", authHandler.Register).Methods("POST")
	api.HandleFunc("/public/jobs/", jobsHandler.PublicJobs).Methods("GET")
	api.HandleFunc("/public/jobs/{id:[0-9]+}/", jobsHandler.PublicJob).Methods("GET")
	api.HandleFunc("/public/applications/", applicantsHandler.SubmitApplication).Methods("POST")

	// Protected routes
	protected := api.NewRoute().Subrouter()
	protected.Use(TokenAuthMiddleware(cfg.Sandbox.JWTSecret))

	protected.HandleFunc("/auth/user/", authHandler.CurrentUser).Methods("GET")

	protected.HandleFunc("/jobs/", jobsHandler.ListJobs).Methods("GET")
	protected.HandleFunc("/jobs/", jobsHandler.CreateJob).Methods("POST")
	protected.HandleFunc("/jobs/{id:[0-9]+}/", jobsHandler.GetJob).Methods("GET")
	protected.HandleFunc("/jobs/{id:[0-9]+}/", jobsHandler.UpdateJob).Methods("PUT")
	protected.HandleFunc("/jobs/{id:[0-9]+}/", jobsHandler.DeleteJob).Methods("DELETE")

	protected.HandleFunc("/applicants/", applicantsHandler.ListApplicants).Methods("GET")
	protected.HandleFunc("/applicants/", applicantsHandler.UploadApplicant).Methods("POST")
	protected.HandleFunc("/applicants/bulk_update_status/", applicantsHandler.BulkUpdateStatus).Methods("POST")
	protected.HandleFunc("/applicants/export_csv/", applicantsHandler.ExportCSV).Methods("GET")
	protected.HandleFunc("/applicants/dashboard_stats/", applicantsHandler.DashboardStats).Methods("GET")
	protected.HandleFunc("/applicants/{id:[0-9]+}/", applicantsHandler.GetApplicant).Methods("GET")
	protected.HandleFunc("/applicants/{id:[0-9]+}/", applicantsHandler.PatchApplicant).Methods("PATCH")
	protected.HandleFunc("/applicants/{id:[0-9]+}/", applicantsHandler.DeleteApplicant).Methods("DELETE")
	protected.HandleFunc("/applicants/{id:[0-9]+}/update_status/", applicantsHandler.UpdateStatus).Methods("POST")

	// Preflight requests only need the CORS middleware. A method matcher here
	// would turn every unknown route into a 405.
	r.MatcherFunc(func(req *http.Request, _ *mux.RouteMatch) bool {
		return req.Method == http.MethodOptions
	}).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { notFound(w) })

	return r
}
