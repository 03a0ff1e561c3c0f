package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"todo-backend/internal/ai"
	"todo-backend/internal/cache"
	"todo-backend/internal/middleware"
	"todo-backend/internal/models"
	"todo-backend/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	tokens *services.TokenService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.User{}, &models.Todo{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	mem := cache.NewMemoryCache()
	t.Cleanup(func() { mem.Close() })

	tokens := services.NewTokenService("test-secret", time.Hour)
	todoService := services.NewCachedTodoService(services.NewTodoService(), mem)

	r := gin.New()

	authHandler := NewAuthHandler(db, services.NewRegisterService(), services.NewAuthService(), tokens)
	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	todoHandler := NewTodoHandler(db, todoService)
	todoRoutes := r.Group("/todos")
	todoRoutes.Use(middleware.RequireAuth(db, tokens))
	{
		todoRoutes.GET("/", todoHandler.List)
		todoRoutes.POST("/", todoHandler.Create)
		todoRoutes.PATCH("/:id", todoHandler.Update)
		todoRoutes.DELETE("/:id", todoHandler.Delete)
		todoRoutes.POST("/reorder", todoHandler.Reorder)
	}

	aiHandler := NewAIHandler(ai.NewService("", "gpt-3.5-turbo", 0))
	r.POST("/ai/breakdown", aiHandler.Breakdown)

	return &testEnv{router: r, db: db, tokens: tokens}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) registerAndLogin(t *testing.T, email string) string {
	t.Helper()

	w := e.do(t, http.MethodPost, "/auth/register", "", gin.H{
		"email": email, "password": "password123",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", w.Code, w.Body.String())
	}

	w = e.do(t, http.MethodPost, "/auth/login", "", gin.H{
		"email": email, "password": "password123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	if resp.TokenType != "bearer" {
		t.Fatalf("token_type = %q, want %q", resp.TokenType, "bearer")
	}
	return resp.AccessToken
}

func decodeTodo(t *testing.T, w *httptest.ResponseRecorder) models.Todo {
	t.Helper()
	var todo models.Todo
	if err := json.Unmarshal(w.Body.Bytes(), &todo); err != nil {
		t.Fatalf("failed to decode todo: %v (body %s)", err, w.Body.String())
	}
	return todo
}

func decodeTodos(t *testing.T, w *httptest.ResponseRecorder) []models.Todo {
	t.Helper()
	var todos []models.Todo
	if err := json.Unmarshal(w.Body.Bytes(), &todos); err != nil {
		t.Fatalf("failed to decode todos: %v (body %s)", err, w.Body.String())
	}
	return todos
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body gin.H
	}{
		{"missing email", gin.H{"password": "password123"}},
		{"invalid email", gin.H{"email": "not-an-email", "password": "password123"}},
		{"short password", gin.H{"email": "a@example.com", "password": "short"}},
		{"missing password", gin.H{"email": "a@example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/auth/register", "", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndLogin(t, "alice@example.com")

	w := env.do(t, http.MethodPost, "/auth/register", "", gin.H{
		"email": "alice@example.com", "password": "password456",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestRegisterDoesNotExposePassword(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/auth/register", "", gin.H{
		"email": "alice@example.com", "password": "password123",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if bytes.Contains(w.Body.Bytes(), []byte("password")) {
		t.Errorf("register response leaks password material: %s", w.Body.String())
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndLogin(t, "alice@example.com")

	wrongPassword := env.do(t, http.MethodPost, "/auth/login", "", gin.H{
		"email": "alice@example.com", "password": "wrong-password",
	})
	unknownEmail := env.do(t, http.MethodPost, "/auth/login", "", gin.H{
		"email": "ghost@example.com", "password": "password123",
	})

	for name, w := range map[string]*httptest.ResponseRecorder{
		"wrong password": wrongPassword,
		"unknown email":  unknownEmail,
	} {
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want %d", name, w.Code, http.StatusUnauthorized)
		}
		if got := w.Header().Get("WWW-Authenticate"); got != "Bearer" {
			t.Errorf("%s: WWW-Authenticate = %q, want %q", name, got, "Bearer")
		}
	}
	if wrongPassword.Body.String() != unknownEmail.Body.String() {
		t.Errorf("failure bodies differ: %s vs %s", wrongPassword.Body.String(), unknownEmail.Body.String())
	}
}

func TestTodosRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/todos/"},
		{http.MethodPost, "/todos/"},
		{http.MethodPatch, "/todos/1"},
		{http.MethodDelete, "/todos/1"},
		{http.MethodPost, "/todos/reorder"},
	} {
		w := env.do(t, route.method, route.path, "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s status = %d, want %d", route.method, route.path, w.Code, http.StatusUnauthorized)
		}
	}
}

func TestTodoLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t, "alice@example.com")

	// Create.
	w := env.do(t, http.MethodPost, "/todos/", token, gin.H{
		"title": "  buy milk  ", "description": "two liters",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	created := decodeTodo(t, w)
	if created.Title != "buy milk" {
		t.Errorf("created title = %q, want trimmed %q", created.Title, "buy milk")
	}
	if created.Completed {
		t.Error("created todo should default to not completed")
	}

	// List.
	w = env.do(t, http.MethodGet, "/todos/", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	if todos := decodeTodos(t, w); len(todos) != 1 {
		t.Fatalf("list returned %d todos, want 1", len(todos))
	}

	// Complete it.
	w = env.do(t, http.MethodPatch, fmt.Sprintf("/todos/%d", created.ID), token, gin.H{
		"completed": true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body %s", w.Code, w.Body.String())
	}
	patched := decodeTodo(t, w)
	if !patched.Completed {
		t.Error("patch did not set completed")
	}
	if patched.Title != "buy milk" || patched.Description != "two liters" {
		t.Error("patch touched fields absent from the request")
	}

	// Delete.
	w = env.do(t, http.MethodDelete, fmt.Sprintf("/todos/%d", created.ID), token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body %s", w.Code, w.Body.String())
	}
	var deleted struct {
		Message string `json:"message"`
		TodoID  uint   `json:"todo_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &deleted); err != nil {
		t.Fatalf("failed to decode delete response: %v", err)
	}
	if deleted.Message != "Deleted successfully" || deleted.TodoID != created.ID {
		t.Errorf("delete response = %+v, want message and todo_id", deleted)
	}

	// Gone.
	w = env.do(t, http.MethodGet, "/todos/", token, nil)
	if todos := decodeTodos(t, w); len(todos) != 0 {
		t.Errorf("list after delete returned %d todos, want 0", len(todos))
	}
	w = env.do(t, http.MethodDelete, fmt.Sprintf("/todos/%d", created.ID), token, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestTodoValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t, "alice@example.com")

	tests := []struct {
		name string
		body gin.H
	}{
		{"missing title", gin.H{"description": "x"}},
		{"whitespace title", gin.H{"title": "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/todos/", token, tt.body)
			if w.Code != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
			}
		})
	}

	w := env.do(t, http.MethodPatch, "/todos/abc", token, gin.H{"completed": true})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("non-integer id status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
}

func TestTodoPatchNullSemantics(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t, "alice@example.com")

	w := env.do(t, http.MethodPost, "/todos/", token, gin.H{
		"title": "buy milk", "description": "two liters",
	})
	created := decodeTodo(t, w)
	path := fmt.Sprintf("/todos/%d", created.ID)

	// Explicit null clears the description.
	w = env.do(t, http.MethodPatch, path, token, map[string]interface{}{"description": nil})
	if w.Code != http.StatusOK {
		t.Fatalf("null description status = %d, body %s", w.Code, w.Body.String())
	}
	if patched := decodeTodo(t, w); patched.Description != "" {
		t.Errorf("description = %q, want cleared", patched.Description)
	}

	// Null is rejected for non-nullable fields.
	for _, body := range []map[string]interface{}{
		{"title": nil},
		{"completed": nil},
	} {
		w = env.do(t, http.MethodPatch, path, token, body)
		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("null field status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
		}
	}
}

func TestTodoCrossOwnerIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.registerAndLogin(t, "alice@example.com")
	bobToken := env.registerAndLogin(t, "bob@example.com")

	w := env.do(t, http.MethodPost, "/todos/", aliceToken, gin.H{"title": "alice's"})
	created := decodeTodo(t, w)
	path := fmt.Sprintf("/todos/%d", created.ID)

	if w := env.do(t, http.MethodPatch, path, bobToken, gin.H{"completed": true}); w.Code != http.StatusNotFound {
		t.Errorf("cross-owner patch status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if w := env.do(t, http.MethodDelete, path, bobToken, nil); w.Code != http.StatusNotFound {
		t.Errorf("cross-owner delete status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if w := env.do(t, http.MethodGet, "/todos/", bobToken, nil); len(decodeTodos(t, w)) != 0 {
		t.Error("cross-owner list leaked todos")
	}
}

func TestReorderEndpoint(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t, "alice@example.com")

	var ids []uint
	for _, title := range []string{"a", "b", "c"} {
		w := env.do(t, http.MethodPost, "/todos/", token, gin.H{"title": title})
		ids = append(ids, decodeTodo(t, w).ID)
	}

	w := env.do(t, http.MethodPost, "/todos/reorder", token, gin.H{
		"todo_ids": []uint{ids[2], ids[0], ids[1]},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("reorder status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode reorder response: %v", err)
	}
	if resp.Message != "Order updated" {
		t.Errorf("reorder message = %q, want %q", resp.Message, "Order updated")
	}

	w = env.do(t, http.MethodGet, "/todos/", token, nil)
	todos := decodeTodos(t, w)
	want := []uint{ids[2], ids[0], ids[1]}
	for i, todo := range todos {
		if todo.ID != want[i] {
			t.Errorf("position %d: id = %d, want %d", i, todo.ID, want[i])
		}
	}

	// Missing todo_ids is a validation failure.
	if w := env.do(t, http.MethodPost, "/todos/reorder", token, gin.H{}); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("reorder without ids status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
}

func TestBreakdownEndpointFallback(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/ai/breakdown", "", gin.H{"title": "plan the launch"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Subtasks []string `json:"subtasks"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Subtasks) != 3 {
		t.Fatalf("got %d subtasks, want 3", len(resp.Subtasks))
	}
	for i, sub := range resp.Subtasks {
		if !bytes.Contains([]byte(sub), []byte("plan the launch")) {
			t.Errorf("subtask %d = %q does not contain the title", i, sub)
		}
	}
}

func TestBreakdownEndpointValidation(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(t, http.MethodPost, "/ai/breakdown", "", gin.H{}); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
}

func TestBreakdownEndpointUpstreamFailure(t *testing.T) {
	env := newTestEnv(t)

	r := gin.New()
	r.POST("/ai/breakdown", NewAIHandler(failingBreakdown{}).Breakdown)
	env.router = r

	w := env.do(t, http.MethodPost, "/ai/breakdown", "", gin.H{"title": "plan the launch"})
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadGateway)
	}
}

type failingBreakdown struct{}

func (failingBreakdown) Subtasks(ctx context.Context, title string) ([]string, error) {
	return nil, errors.New("upstream exploded")
}
