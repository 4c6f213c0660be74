package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"tasktracker/config"
	"tasktracker/internal/delivery/api"
	"tasktracker/internal/delivery/api/middleware"
	"tasktracker/internal/delivery/api/router"
	"tasktracker/internal/delivery/api/router/handler"
	"tasktracker/internal/infra/auth"
	"tasktracker/internal/infra/metrics"
	"tasktracker/internal/infra/persistence/database"
	"tasktracker/internal/usecase/impl"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testPassword = "Passw0rd12345678"

type testApp struct {
	echo *echo.Echo
	db   *gorm.DB
}

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Env.ServiceName = "tasktracker-test"
	cfg.Env.Version = "test"
	cfg.HTTP.MaxRequestBodySize = "100KB"
	cfg.HTTP.CORS.AllowOrigins = []string{"*"}
	cfg.Auth = &config.AuthConfig{
		Secret:            strings.Repeat("s", 32),
		TokenTTL:          24 * time.Hour,
		LongLivedTokenTTL: 30 * 24 * time.Hour,
		BcryptCost:        bcrypt.MinCost,
		MinSecretLength:   32,
	}
	cfg.PasswordPolicy = &config.PasswordPolicyConfig{MinDigits: 8}
	cfg.Database = &config.DatabaseConfig{
		URL:  "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		Pool: config.PoolConfig{MaxOpenConns: 1},
	}
	cfg.Metrics = &config.MetricsConfig{Enabled: true, Path: "/metrics"}

	return cfg
}

// newTestApp wires the real stack over an in-memory SQLite store.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	cfg := newTestConfig()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(cfg)

	db, err := database.Open(cfg, logger)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	tokenService, err := auth.NewJWTService(cfg, logger)
	require.NoError(t, err)

	userRepo := database.NewUserRepository(db)
	taskRepo := database.NewTaskRepository(db)

	accountUC, err := impl.NewAccountService(impl.AccountServiceParams{
		UserRepo:     userRepo,
		Hasher:       auth.NewBcryptHasher(cfg),
		TokenService: tokenService,
		Config:       cfg,
		Logger:       logger,
	})
	require.NoError(t, err)
	taskUC := impl.NewTaskService(impl.TaskServiceParams{
		TxManager: database.NewTransactionManager(db),
		TaskRepo:  taskRepo,
		UserRepo:  userRepo,
		Logger:    logger,
	})

	e := api.NewEcho(cfg, logger, m)
	router.NewRouter(router.RouterParams{
		AccountHandler: handler.NewAccountHandler(handler.AccountHandlerParams{AccountUC: accountUC, Metrics: m, Logger: logger}),
		TaskHandler:    handler.NewTaskHandler(handler.TaskHandlerParams{TaskUC: taskUC, Logger: logger}),
		HealthHandler:  handler.NewHealthHandler(handler.HealthHandlerParams{Config: cfg, DB: db}),
		AuthMiddleware: middleware.NewAuthMiddleware(middleware.AuthMiddlewareParams{TokenService: tokenService, Metrics: m, Logger: logger}),
		Metrics:        m,
		Config:         cfg,
	}).RegisterRoutes(e)

	return &testApp{echo: e, db: db}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			payload, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(payload)
		}
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)

	return rec
}

func (a *testApp) registerAndLogin(t *testing.T, email string) string {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": email, "password": testPassword})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": testPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var login struct {
		AccessToken string `json:"access_token"`
	}
	decode(t, rec, &login)
	require.NotEmpty(t, login.AccessToken)

	return login.AccessToken
}

func (a *testApp) createTask(t *testing.T, token string, body any) taskBody {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/tasks", token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var task taskBody
	decode(t, rec, &task)

	return task
}

type taskBody struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Completed   bool    `json:"completed"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
	CompletedAt *string `json:"completed_at"`
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Detail string `json:"detail"`
	Meta   struct {
		RequestID string `json:"request_id"`
	} `json:"meta"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func parseTime(t *testing.T, value string) time.Time {
	t.Helper()

	parsed, err := time.Parse(time.RFC3339Nano, value)
	require.NoError(t, err)

	return parsed
}

func TestServer_TaskLifecycle(t *testing.T) {
	app := newTestApp(t)
	token := app.registerAndLogin(t, "a@example.com")

	rec := app.do(t, http.MethodGet, "/tasks", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	// The raw body must carry explicit nulls for the optional fields.
	rec = app.do(t, http.MethodPost, "/tasks", token, map[string]string{"title": "x"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var raw map[string]any
	decode(t, rec, &raw)
	assert.Contains(t, raw, "completed_at")
	assert.Nil(t, raw["completed_at"])
	assert.Contains(t, raw, "description")
	assert.Nil(t, raw["description"])
	assert.Equal(t, false, raw["completed"])
	taskID := raw["id"].(string)

	rec = app.do(t, http.MethodPatch, "/tasks/"+taskID+"/complete", token, map[string]bool{"completed": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var first taskBody
	decode(t, rec, &first)
	assert.True(t, first.Completed)
	require.NotNil(t, first.CompletedAt)

	time.Sleep(5 * time.Millisecond)

	rec = app.do(t, http.MethodPatch, "/tasks/"+taskID+"/complete", token, map[string]bool{"completed": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var second taskBody
	decode(t, rec, &second)
	require.NotNil(t, second.CompletedAt)
	assert.True(t, parseTime(t, *first.CompletedAt).Equal(parseTime(t, *second.CompletedAt)))
	assert.True(t, parseTime(t, second.UpdatedAt).After(parseTime(t, first.UpdatedAt)))

	rec = app.do(t, http.MethodPatch, "/tasks/"+taskID+"/complete", token, map[string]bool{"completed": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var reopened taskBody
	decode(t, rec, &reopened)
	assert.False(t, reopened.Completed)
	assert.Nil(t, reopened.CompletedAt)

	rec = app.do(t, http.MethodGet, "/tasks", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tasks []taskBody
	decode(t, rec, &tasks)
	require.Len(t, tasks, 1)
	assert.Equal(t, taskID, tasks[0].ID)
}

func TestServer_OtherUsersCannotTouchTask(t *testing.T) {
	app := newTestApp(t)
	owner := app.registerAndLogin(t, "owner@example.com")
	intruder := app.registerAndLogin(t, "intruder@example.com")

	task := app.createTask(t, owner, map[string]string{"title": "private"})
	path := "/tasks/" + task.ID

	requests := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, path, nil},
		{http.MethodPut, path, map[string]string{"title": "mine now"}},
		{http.MethodPatch, path + "/complete", map[string]bool{"completed": true}},
		{http.MethodDelete, path, nil},
	}

	for _, r := range requests {
		t.Run(r.method, func(t *testing.T) {
			rec := app.do(t, r.method, r.path, intruder, r.body)
			assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

			var body errorBody
			decode(t, rec, &body)
			assert.Equal(t, "TASK_ACCESS_DENIED", body.Error.Code)
		})
	}

	rec := app.do(t, http.MethodGet, path, owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var unchanged taskBody
	decode(t, rec, &unchanged)
	assert.Equal(t, "private", unchanged.Title)
	assert.False(t, unchanged.Completed)

	rec = app.do(t, http.MethodGet, "/tasks", intruder, nil)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestServer_DeleteThenGetIsNotFound(t *testing.T) {
	app := newTestApp(t)
	token := app.registerAndLogin(t, "a@example.com")
	task := app.createTask(t, token, map[string]string{"title": "short-lived"})

	rec := app.do(t, http.MethodDelete, "/tasks/"+task.ID, token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = app.do(t, http.MethodGet, "/tasks/"+task.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodDelete, "/tasks/"+task.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_UnknownTaskIsNotFoundForAnyCaller(t *testing.T) {
	app := newTestApp(t)
	token := app.registerAndLogin(t, "a@example.com")

	rec := app.do(t, http.MethodPut, "/tasks/"+uuid.NewString(), token, map[string]string{"title": "y"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body errorBody
	decode(t, rec, &body)
	assert.Equal(t, "Task not found", body.Detail)
}

func TestServer_InvalidTaskID(t *testing.T) {
	app := newTestApp(t)
	token := app.registerAndLogin(t, "a@example.com")

	rec := app.do(t, http.MethodGet, "/tasks/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorBody
	decode(t, rec, &body)
	assert.Equal(t, "Invalid task ID format", body.Error.Message)
}

func TestServer_UpdateIsPartial(t *testing.T) {
	app := newTestApp(t)
	token := app.registerAndLogin(t, "a@example.com")
	task := app.createTask(t, token, map[string]any{"title": "draft", "description": "keep me"})
	path := "/tasks/" + task.ID

	rec := app.do(t, http.MethodPut, path, token, map[string]any{"completed": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated taskBody
	decode(t, rec, &updated)
	assert.Equal(t, "draft", updated.Title)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "keep me", *updated.Description)
	assert.True(t, updated.Completed)
	assert.NotNil(t, updated.CompletedAt)
	assert.True(t, parseTime(t, task.CreatedAt).Equal(parseTime(t, updated.CreatedAt)))

	rec = app.do(t, http.MethodPut, path, token, `{"description": null}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &updated)
	assert.Nil(t, updated.Description)
	assert.True(t, updated.Completed)

	rec = app.do(t, http.MethodPut, path, token, map[string]string{"title": strings.Repeat("t", 201)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodPut, path, token, map[string]string{"description": strings.Repeat("d", 1001)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_CreateValidation(t *testing.T) {
	app := newTestApp(t)
	token := app.registerAndLogin(t, "a@example.com")

	rec := app.do(t, http.MethodPost, "/tasks", token, map[string]string{"description": "no title"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorBody
	decode(t, rec, &body)
	assert.Equal(t, "VALIDATION_FAILED", body.Error.Code)
	assert.Contains(t, body.Detail, "title")

	rec = app.do(t, http.MethodPost, "/tasks", token, `{"title": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	task := app.createTask(t, token, map[string]any{"title": "done already", "completed": true})
	assert.True(t, task.Completed)
	require.NotNil(t, task.CompletedAt)
	assert.True(t, parseTime(t, task.CreatedAt).Equal(parseTime(t, *task.CompletedAt)))
}

func TestServer_Registration(t *testing.T) {
	app := newTestApp(t)
	creds := map[string]string{"email": "a@example.com", "password": testPassword}

	rec := app.do(t, http.MethodPost, "/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, rec.Code)
	var user map[string]any
	decode(t, rec, &user)
	assert.Equal(t, "a@example.com", user["email"])
	assert.NotEmpty(t, user["id"])
	assert.NotEmpty(t, user["created_at"])
	assert.NotContains(t, user, "password_hash")
	assert.NotContains(t, rec.Body.String(), testPassword)

	rec = app.do(t, http.MethodPost, "/auth/register", "", creds)
	assert.Equal(t, http.StatusConflict, rec.Code)
	var conflict errorBody
	decode(t, rec, &conflict)
	assert.Equal(t, "Email already registered", conflict.Detail)

	rec = app.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": "b@example.com", "password": "abcdefg1234567"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var weak errorBody
	decode(t, rec, &weak)
	assert.Equal(t, "Password must contain at least 8 digits", weak.Detail)

	rec = app.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": "b@example.com", "password": "abcdefg12345678"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = app.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": "not-an-email", "password": testPassword})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_LoginFailuresLookAlike(t *testing.T) {
	app := newTestApp(t)
	app.registerAndLogin(t, "a@example.com")

	wrongPassword := app.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "a@example.com", "password": "nope12345678"})
	unknownEmail := app.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ghost@example.com", "password": testPassword})

	require.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	require.Equal(t, http.StatusUnauthorized, unknownEmail.Code)

	var a, b errorBody
	decode(t, wrongPassword, &a)
	decode(t, unknownEmail, &b)
	assert.Equal(t, "Incorrect email or password", a.Detail)
	assert.Equal(t, a.Error, b.Error)
	assert.Equal(t, "Bearer", wrongPassword.Header().Get(echo.HeaderWWWAuthenticate))
}

func TestServer_TokenFormLogin(t *testing.T) {
	app := newTestApp(t)
	app.registerAndLogin(t, "a@example.com")

	form := url.Values{"username": {"a@example.com"}, "password": {testPassword}}
	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	app.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body map[string]any
	decode(t, rec, &body)
	assert.Equal(t, "bearer", body["token_type"])
	assert.NotEmpty(t, body["access_token"])
	assert.NotContains(t, body, "user")

	rec = app.do(t, http.MethodGet, "/auth/me", body["access_token"].(string), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_MeAndLogout(t *testing.T) {
	app := newTestApp(t)
	token := app.registerAndLogin(t, "a@example.com")

	rec := app.do(t, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me map[string]any
	decode(t, rec, &me)
	assert.Equal(t, "a@example.com", me["email"])

	rec = app.do(t, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Logged out successfully"}`, rec.Body.String())

	// The account disappears but the token is still cryptographically valid.
	require.NoError(t, app.db.Exec("DELETE FROM users WHERE email = ?", "a@example.com").Error)
	rec = app.do(t, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodPost, "/tasks", token, map[string]string{"title": "orphan"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_RejectsMissingAndBadTokens(t *testing.T) {
	app := newTestApp(t)
	token := app.registerAndLogin(t, "a@example.com")

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing", header: ""},
		{name: "wrong scheme", header: "Basic " + token},
		{name: "empty bearer", header: "Bearer "},
		{name: "garbage", header: "Bearer not.a.jwt"},
		{name: "tampered", header: "Bearer " + token + "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			app.echo.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Bearer", rec.Header().Get(echo.HeaderWWWAuthenticate))

			var body errorBody
			decode(t, rec, &body)
			assert.Equal(t, "Could not validate credentials", body.Detail)
		})
	}

	// The scheme is case-insensitive.
	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set(echo.HeaderAuthorization, "bearer "+token)
	rec := httptest.NewRecorder()
	app.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_ProbesAndMetrics(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = app.do(t, http.MethodGet, "/ready", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready","database":"connected"}`, rec.Body.String())

	rec = app.do(t, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Welcome to the Todo API","version":"test"}`, rec.Body.String())

	app.registerAndLogin(t, "a@example.com")

	rec = app.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `tasktracker_http_requests_total`)
	assert.Contains(t, body, `route="/auth/register"`)
	assert.Contains(t, body, `tasktracker_auth_logins_total`)
	assert.NotContains(t, body, `route="/metrics"`)
}

func TestServer_ReadyReportsUnreachableStore(t *testing.T) {
	app := newTestApp(t)

	sqlDB, err := app.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	rec := app.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body errorBody
	decode(t, rec, &body)
	assert.Equal(t, "DATABASE_UNAVAILABLE", body.Error.Code)

	rec = app.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_RequestID(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("X-Request-Id", "trace-123")
	rec := httptest.NewRecorder()
	app.echo.ServeHTTP(rec, req)

	assert.Equal(t, "trace-123", rec.Header().Get("X-Request-Id"))
	var body errorBody
	decode(t, rec, &body)
	assert.Equal(t, "trace-123", body.Meta.RequestID)

	rec = app.do(t, http.MethodGet, "/health", "", nil)
	_, err := uuid.Parse(rec.Header().Get("X-Request-Id"))
	assert.NoError(t, err)
}

func TestServer_UnknownRoute(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body errorBody
	decode(t, rec, &body)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
}
