package account_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pistigreen/pistigreen-backend/internal/account"
	_ "github.com/pistigreen/pistigreen-backend/testing"
)

type memoryRepo struct {
	mu       sync.Mutex
	accounts map[int64]account.Account
	saves    int
}

func newMemoryRepo(accounts ...account.Account) *memoryRepo {
	repo := &memoryRepo{accounts: make(map[int64]account.Account)}
	for _, a := range accounts {
		repo.accounts[a.ID] = a
	}
	return repo
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, account.Repository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) FindByID(ctx context.Context, id int64) (*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound
	}
	return &a, nil
}

func (m *memoryRepo) FindByEmail(ctx context.Context, email string) (*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == email {
			found := a
			return &found, nil
		}
	}
	return nil, account.ErrAccountNotFound
}

func (m *memoryRepo) FindByIDAndEmail(ctx context.Context, id int64, email string) (*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok || a.Email != email {
		return nil, account.ErrAccountNotFound
	}
	return &a, nil
}

func (m *memoryRepo) LockByIDAndEmail(ctx context.Context, id int64, email string) (*account.Account, error) {
	return m.FindByIDAndEmail(ctx, id, email)
}

func (m *memoryRepo) Create(ctx context.Context, a account.Account) (*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.Email == a.Email {
			return nil, account.ErrEmailTaken
		}
	}
	a.ID = int64(len(m.accounts) + 1)
	m.accounts[a.ID] = a
	return &a, nil
}

func (m *memoryRepo) Save(ctx context.Context, a *account.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.ID]; !ok {
		return account.ErrAccountNotFound
	}
	m.saves++
	m.accounts[a.ID] = *a
	return nil
}

func newRouter(repo account.Repository) http.Handler {
	handler := account.NewHandler(nil, account.NewService(repo, nil, nil, nil))
	r := chi.NewRouter()
	r.Route("/account", handler.MountRoutes)
	r.Route("/api", handler.MountAPIRoutes)
	return r
}

func activate(t *testing.T, router http.Handler, email, id string) *httptest.ResponseRecorder {
	t.Helper()
	q := url.Values{}
	if email != "" {
		q.Set("email", email)
	}
	if id != "" {
		q.Set("id", id)
	}
	req := httptest.NewRequest(http.MethodGet, "/account/activateemail?"+q.Encode(), nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestActivateEmailSuccess(t *testing.T) {
	repo := newMemoryRepo(account.Account{ID: 7, Email: "a@example.com"})
	router := newRouter(repo)

	res := activate(t, router, "a@example.com", "7")

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "El usuario ahora está activado. Puedes seguir adelante e iniciar sesión.", res.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", res.Header().Get("Content-Type"))
	assert.True(t, repo.accounts[7].IsActive)
}

func TestActivateEmailInvalidParameters(t *testing.T) {
	repo := newMemoryRepo(account.Account{ID: 7, Email: "a@example.com"})
	router := newRouter(repo)

	for _, params := range [][2]string{{"", ""}, {"", "7"}, {"a@example.com", ""}} {
		res := activate(t, router, params[0], params[1])

		assert.Equal(t, http.StatusOK, res.Code)
		assert.Equal(t, "¡Los parámetros no son válidos!", res.Body.String())
	}
	assert.Zero(t, repo.saves)
	assert.False(t, repo.accounts[7].IsActive)
}

func TestActivateEmailNotFound(t *testing.T) {
	repo := newMemoryRepo(account.Account{ID: 7, Email: "a@example.com"})
	router := newRouter(repo)

	res := activate(t, router, "someone@example.com", "7")

	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, account.MessageAccountNotFound, res.Body.String())
	assert.False(t, repo.accounts[7].IsActive)
}

func TestActivateEmailScenario(t *testing.T) {
	repo := newMemoryRepo(account.Account{ID: 7, Email: "a@example.com"})
	router := newRouter(repo)

	first := activate(t, router, "a@example.com", "7")
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, account.MessageActivated, first.Body.String())

	again := activate(t, router, "a@example.com", "7")
	assert.Equal(t, first.Body.String(), again.Body.String())

	invalid := activate(t, router, "", "7")
	assert.Equal(t, account.MessageInvalidParameters, invalid.Body.String())
	assert.True(t, repo.accounts[7].IsActive)
}

func TestSignup(t *testing.T) {
	repo := newMemoryRepo()
	router := newRouter(repo)

	body := `{"email":"nuevo@example.com","name":"Nuevo","password1":"supersecret","password2":"supersecret"}`
	req := httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	assert.Equal(t, "success", payload["message"])
	require.Len(t, repo.accounts, 1)
	assert.False(t, repo.accounts[1].IsActive)
}

func TestSignupRejectsInvalidPayload(t *testing.T) {
	repo := newMemoryRepo(account.Account{ID: 1, Email: "taken@example.com"})
	router := newRouter(repo)

	cases := []struct {
		name    string
		body    string
		message string
	}{
		{name: "malformed", body: `{"email":`, message: "invalid request body"},
		{name: "short password", body: `{"email":"x@example.com","name":"X","password1":"short","password2":"short"}`, message: "invalid data"},
		{name: "duplicate", body: `{"email":"taken@example.com","name":"X","password1":"supersecret","password2":"supersecret"}`, message: "email already registered"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader(tc.body))
			res := httptest.NewRecorder()
			router.ServeHTTP(res, req)

			assert.Equal(t, http.StatusBadRequest, res.Code)
			var payload map[string]any
			require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
			assert.Equal(t, tc.message, payload["message"])
		})
	}
}
