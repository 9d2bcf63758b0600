package expense

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// Server handles HTTP requests for the reimbursement workflow
type Server struct {
	service  *Service
	mux      *http.ServeMux
	validate *validator.Validate
}

// NewServer creates a new Server with default mux
func NewServer(service *Service) *Server {
	return NewServerWithMux(service, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, mux *http.ServeMux) *Server {
	s := &Server{
		service:  service,
		mux:      mux,
		validate: newValidator(),
	}
	s.registerRoutes()
	return s
}

// newValidator builds the request validator with the fixed-list rules for
// expense categories and projects.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("expense_category", func(fl validator.FieldLevel) bool {
		return ValidCategory(fl.Field().String())
	})
	v.RegisterValidation("expense_project", func(fl validator.FieldLevel) bool {
		return ValidProject(fl.Field().String())
	})
	return v
}

// corsMiddleware adds CORS headers to responses
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// registerRoutes registers all API routes on the server's mux
// Routes must be registered from most specific to least specific to avoid conflicts
func (s *Server) registerRoutes() {
	// Session / user
	s.mux.HandleFunc("POST /api/session", s.handleLogin)
	s.mux.HandleFunc("GET /api/user", s.handleGetUser)
	s.mux.HandleFunc("PATCH /api/user", s.handleUpdateUser)

	// Receipts (most specific paths first)
	s.mux.HandleFunc("GET /api/receipts/{id}/file", s.handleGetReceiptFile)
	s.mux.HandleFunc("GET /api/receipts/{id}", s.handleGetReceipt)
	s.mux.HandleFunc("DELETE /api/receipts/{id}", s.handleDeleteReceipt)
	s.mux.HandleFunc("GET /api/receipts", s.handleListReceipts)
	s.mux.HandleFunc("POST /api/receipts", s.handleUploadReceipts)

	// Expenses
	s.mux.HandleFunc("POST /api/expenses/promote", s.handlePromote)
	s.mux.HandleFunc("PUT /api/expenses/{id}/receipts", s.handleLinkReceipts)
	s.mux.HandleFunc("PATCH /api/expenses/{id}", s.handleUpdateExpense)
	s.mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)
	s.mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	s.mux.HandleFunc("POST /api/expenses", s.handleAddExpense)

	// Export
	s.mux.HandleFunc("GET /api/export/status", s.handleExportStatus)
	s.mux.HandleFunc("GET /api/export/report", s.handleExportReport)
	s.mux.HandleFunc("GET /api/export/email/eml", s.handleExportEmailEML)
	s.mux.HandleFunc("GET /api/export/email", s.handleExportEmail)
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
			s.mux.ServeHTTP(w, r)
		})(w, r)
	}))
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
