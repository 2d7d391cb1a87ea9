package e2e

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// E2ETestSuite drives the running server over HTTP through playwright's
// request API. Each test gets its own context and therefore its own cookies.
type E2ETestSuite struct {
	suite.Suite
	pw  *playwright.Playwright
	api playwright.APIRequestContext
}

// SetupSuite runs once before all tests
func (suite *E2ETestSuite) SetupSuite() {
	pw, err := playwright.Run()
	if err != nil {
		suite.T().Skipf("playwright driver unavailable: %v", err)
	}
	suite.pw = pw
}

// TearDownSuite runs once after all tests
func (suite *E2ETestSuite) TearDownSuite() {
	if suite.pw != nil {
		suite.pw.Stop()
	}
}

// SetupTest runs before each test
func (suite *E2ETestSuite) SetupTest() {
	suite.api = suite.newContext()
}

// TearDownTest runs after each test
func (suite *E2ETestSuite) TearDownTest() {
	if suite.api != nil {
		suite.api.Dispose()
	}
}

func (suite *E2ETestSuite) newContext() playwright.APIRequestContext {
	ctx, err := suite.pw.Request.NewContext(playwright.APIRequestNewContextOptions{
		BaseURL: playwright.String(appURL),
	})
	require.NoError(suite.T(), err, "could not create request context")
	return ctx
}

func (suite *E2ETestSuite) login(api playwright.APIRequestContext, username, password string) {
	resp, err := api.Post("/api/login", playwright.APIRequestContextPostOptions{
		Data: map[string]any{"username": username, "password": password},
	})
	require.NoError(suite.T(), err, "login request failed")
	require.Equal(suite.T(), http.StatusOK, resp.Status(), "login rejected")
}

func (suite *E2ETestSuite) post(api playwright.APIRequestContext, path string, body any, wantStatus int, out any) {
	resp, err := api.Post(path, playwright.APIRequestContextPostOptions{Data: body})
	require.NoError(suite.T(), err, "POST %s failed", path)
	require.Equal(suite.T(), wantStatus, resp.Status(), "POST %s", path)
	if out != nil {
		require.NoError(suite.T(), resp.JSON(out))
	}
}

func (suite *E2ETestSuite) get(api playwright.APIRequestContext, path string, wantStatus int, out any) {
	resp, err := api.Get(path)
	require.NoError(suite.T(), err, "GET %s failed", path)
	require.Equal(suite.T(), wantStatus, resp.Status(), "GET %s", path)
	if out != nil {
		require.NoError(suite.T(), resp.JSON(out))
	}
}

func (suite *E2ETestSuite) TestBootstrapUserFlow() {
	suite.login(suite.api, adminUser, adminPassword)

	var me map[string]any
	suite.get(suite.api, "/api/user", http.StatusOK, &me)
	require.Equal(suite.T(), adminUser, me["username"])

	var tx map[string]any
	suite.post(suite.api, "/api/transactions", map[string]any{
		"amount":      12.5,
		"type":        "expense",
		"category":    "Food",
		"description": "Lunch Test",
		"date":        "2024-03-10",
	}, http.StatusCreated, &tx)
	require.Equal(suite.T(), "Lunch Test", tx["description"])
	require.EqualValues(suite.T(), 12.5, tx["amount"])
	id := int(tx["id"].(float64))

	resp, err := suite.api.Patch("/api/transactions/"+strconv.Itoa(id), playwright.APIRequestContextPatchOptions{
		Data: map[string]any{"description": "Team lunch"},
	})
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), http.StatusOK, resp.Status())

	var summary map[string]any
	suite.get(suite.api, "/api/summary?year=2024&month=3", http.StatusOK, &summary)
	require.EqualValues(suite.T(), 12.5, summary["totalExpense"])

	resp, err = suite.api.Delete("/api/transactions/" + strconv.Itoa(id))
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), http.StatusOK, resp.Status())

	suite.get(suite.api, "/api/transactions/"+strconv.Itoa(id), http.StatusNotFound, nil)

	resp, err = suite.api.Post("/api/logout")
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), http.StatusOK, resp.Status())

	suite.get(suite.api, "/api/transactions", http.StatusUnauthorized, nil)
}

func (suite *E2ETestSuite) TestRegisteredUsersAreIsolated() {
	suite.post(suite.api, "/api/register", map[string]any{
		"name":     "Alice",
		"username": "alice@example.com",
		"password": "alicepass",
	}, http.StatusCreated, nil)

	var goal map[string]any
	suite.post(suite.api, "/api/budget-goals", map[string]any{
		"name":         "Rainy day",
		"targetAmount": 1000,
		"category":     "Emergency Fund",
		"targetDate":   "2030-01-01",
	}, http.StatusCreated, &goal)
	id := int(goal["id"].(float64))

	other := suite.newContext()
	defer other.Dispose()
	suite.login(other, adminUser, adminPassword)

	var goals []map[string]any
	suite.get(other, "/api/budget-goals", http.StatusOK, &goals)
	for _, g := range goals {
		require.NotEqual(suite.T(), goal["id"], g["id"], "goal leaked across users")
	}

	resp, err := other.Delete("/api/budget-goals/" + strconv.Itoa(id))
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), http.StatusNotFound, resp.Status())
}

func (suite *E2ETestSuite) TestUnauthenticatedAccess() {
	for _, path := range []string{"/api/user", "/api/transactions", "/api/budget-goals", "/api/summary"} {
		suite.get(suite.api, path, http.StatusUnauthorized, nil)
	}
}

// TestE2ESuite runs the e2e test suite
func TestE2ESuite(t *testing.T) {
	suite.Run(t, new(E2ETestSuite))
}
