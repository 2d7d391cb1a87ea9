package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"finance-tracker/internal/auth"
	"finance-tracker/internal/events"
	"finance-tracker/internal/handlers"
	"finance-tracker/internal/log"
	"finance-tracker/internal/services"
	"finance-tracker/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandlers(t *testing.T) *handlers.Handlers {
	db, err := storage.NewDB(":memory:")
	require.NoError(t, err, "failed to create database")
	t.Cleanup(func() { db.Close() })

	return handlers.NewHandlers(handlers.Services{
		Auth:         auth.NewService(db, time.Hour, nil),
		Transactions: services.NewTransactionService(db, events.NopPublisher{}, nil),
		BudgetGoals:  services.NewBudgetGoalService(db, events.NopPublisher{}, nil),
		Summary:      services.NewSummaryService(db),
		Storage:      db,
	}, false)
}

func TestSetupRouter(t *testing.T) {
	router := setupRouter(newTestHandlers(t), nil, log.Discard())

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"Health probe", http.MethodGet, "/healthz", "", http.StatusOK},
		{"Readiness probe", http.MethodGet, "/readyz", "", http.StatusOK},
		{"Transactions require auth", http.MethodGet, "/api/transactions", "", http.StatusUnauthorized},
		{"Current user requires auth", http.MethodGet, "/api/user", "", http.StatusUnauthorized},
		{"Logout without session", http.MethodPost, "/api/logout", "", http.StatusOK},
		{"Register", http.MethodPost, "/api/register", `{"name":"Ann","username":"ann@example.com","password":"secret1"}`, http.StatusCreated},
		{"Unknown route", http.MethodGet, "/api/nope", "", http.StatusNotFound},
		{"Wrong method", http.MethodGet, "/api/register", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code, "%s %s returned unexpected status", tt.method, tt.path)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.NotEmpty(t, w.Header().Get(log.RequestIDHeader))
		})
	}
}

func TestSetupRouterCORS(t *testing.T) {
	router := setupRouter(newTestHandlers(t), []string{"http://localhost:3000"}, log.Discard())

	req := httptest.NewRequest(http.MethodOptions, "/api/transactions", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}
