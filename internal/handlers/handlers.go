package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"finance-tracker/internal/auth"
	"finance-tracker/internal/log"
	"finance-tracker/internal/models"
	"finance-tracker/internal/services"
	"finance-tracker/internal/storage"

	"github.com/gorilla/mux"
)

// Context key type to avoid collisions.
type contextKey string

const (
	// UserContextKey is the context key for the authenticated user.
	UserContextKey contextKey = "user"
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"

	maxBodyBytes = 1 << 20
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the collaborators the handlers delegate to.
type Services struct {
	Auth         *auth.Service
	Transactions *services.TransactionService
	BudgetGoals  *services.BudgetGoalService
	Summary      *services.SummaryService
	Storage      Pinger
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	svc          Services
	secureCookie bool
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc Services, secureCookie bool) *Handlers {
	return &Handlers{svc: svc, secureCookie: secureCookie}
}

// RegisterRoutes mounts the JSON API on api, normally the /api subrouter.
func (h *Handlers) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	api.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	api.HandleFunc("/logout", h.Logout).Methods(http.MethodPost)

	protected := api.NewRoute().Subrouter()
	protected.Use(h.AuthMiddleware)

	protected.HandleFunc("/user", h.CurrentUser).Methods(http.MethodGet)

	protected.HandleFunc("/transactions", h.ListTransactions).Methods(http.MethodGet)
	protected.HandleFunc("/transactions", h.CreateTransaction).Methods(http.MethodPost)
	protected.HandleFunc("/transactions/{id:[0-9]+}", h.GetTransaction).Methods(http.MethodGet)
	protected.HandleFunc("/transactions/{id:[0-9]+}", h.UpdateTransaction).Methods(http.MethodPatch)
	protected.HandleFunc("/transactions/{id:[0-9]+}", h.DeleteTransaction).Methods(http.MethodDelete)

	protected.HandleFunc("/budget-goals", h.ListBudgetGoals).Methods(http.MethodGet)
	protected.HandleFunc("/budget-goals", h.CreateBudgetGoal).Methods(http.MethodPost)
	protected.HandleFunc("/budget-goals/{id:[0-9]+}", h.UpdateBudgetGoal).Methods(http.MethodPatch)
	protected.HandleFunc("/budget-goals/{id:[0-9]+}", h.DeleteBudgetGoal).Methods(http.MethodDelete)

	protected.HandleFunc("/summary", h.Summary).Methods(http.MethodGet)
}

// GetUserFromContext retrieves the authenticated user from request context.
func GetUserFromContext(r *http.Request) *models.User {
	if user, ok := r.Context().Value(UserContextKey).(*models.User); ok {
		return user
	}
	return nil
}

// AuthMiddleware rejects requests without a live session with 401. It also
// implements rolling sessions: past the halfway point of its lifetime a
// session is renewed and the cookie refreshed.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			h.writeError(w, r, models.ErrUnauthenticated, "")
			return
		}

		info, err := h.svc.Auth.CurrentUser(r.Context(), cookie.Value)
		if err != nil {
			if errors.Is(err, models.ErrUnauthenticated) {
				h.clearSessionCookie(w)
			}
			h.writeError(w, r, err, "")
			return
		}

		expiresAt, renewed, err := h.svc.Auth.Renew(r.Context(), cookie.Value, info)
		if err != nil {
			// The current session is still valid; keep going.
			log.FromContext(r.Context()).WarnContext(r.Context(), "Failed to renew session",
				log.FieldUserID, info.User.ID, log.FieldError, err.Error())
		} else if renewed {
			h.setSessionCookie(w, cookie.Value, expiresAt)
		}

		ctx := context.WithValue(r.Context(), UserContextKey, info.User)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Register creates an account and logs it in.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err, "")
		return
	}

	user, sess, err := h.svc.Auth.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}

	h.setSessionCookie(w, sess.Token, sess.ExpiresAt)
	writeJSON(w, http.StatusCreated, user)
}

// Login handles credential submission.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err, "")
		return
	}

	user, sess, err := h.svc.Auth.Login(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}

	h.setSessionCookie(w, sess.Token, sess.ExpiresAt)
	writeJSON(w, http.StatusOK, user)
}

// Logout ends the session if there is one. It always succeeds.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if err := h.svc.Auth.Logout(r.Context(), cookie.Value); err != nil {
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to delete session", log.FieldError, err.Error())
		}
	}
	h.clearSessionCookie(w)
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

// CurrentUser returns the authenticated user.
func (h *Handlers) CurrentUser(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, GetUserFromContext(r))
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

// writeError is the single place where errors become status codes.
// resource names the entity in 404 messages ("Transaction not found").
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error, resource string) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		writeMessage(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, storage.ErrUsernameTaken):
		writeMessage(w, http.StatusBadRequest, "Username already exists")
	case errors.Is(err, models.ErrInvalidCredentials):
		writeMessage(w, http.StatusUnauthorized, "Invalid username or password")
	case errors.Is(err, models.ErrUnauthenticated):
		writeMessage(w, http.StatusUnauthorized, "Not authenticated")
	case errors.Is(err, storage.ErrNotFound):
		if resource == "" {
			resource = "Resource"
		}
		writeMessage(w, http.StatusNotFound, resource+" not found")
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldMethod, r.Method, log.FieldPath, r.URL.Path, log.FieldError, err.Error())
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeJSON reads a single JSON document of at most maxBodyBytes into v.
// Every decoding problem is reported as a ValidationError.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return nil
	}

	var verr *models.ValidationError
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &verr):
		return verr
	case errors.Is(err, io.EOF):
		return models.NewValidationError("body", "Request body is required")
	case errors.As(err, &maxErr):
		return models.NewValidationError("body", "Request body too large")
	case errors.As(err, &typeErr):
		return models.NewValidationError(typeErr.Field, fmt.Sprintf("Invalid value for %s", typeErr.Field))
	default:
		return models.NewValidationError("body", "Invalid JSON body")
	}
}

// pathID extracts the numeric {id} route variable. The route pattern only
// admits digits, so a failure here means the id overflows int64.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, storage.ErrNotFound
	}
	return id, nil
}

// NotFound answers unmatched routes with the usual JSON error body.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusNotFound, "Not found")
}

// MethodNotAllowed answers a known path hit with the wrong method.
func (h *Handlers) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
}
