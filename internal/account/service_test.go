package account

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pistigreen/pistigreen-backend/internal/shared"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockRepository struct {
	mu       sync.Mutex
	accounts map[int64]*Account
	nextID   int64

	lookups int
	saves   int

	// Error injection
	saveErr   error
	createErr error
}

func newMockRepository(seed ...Account) *mockRepository {
	m := &mockRepository{accounts: make(map[int64]*Account), nextID: 1}
	for _, a := range seed {
		acc := a
		m.accounts[acc.ID] = &acc
		if acc.ID >= m.nextID {
			m.nextID = acc.ID + 1
		}
	}
	return m
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *mockRepository) FindByID(ctx context.Context, id int64) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	for _, a := range m.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (m *mockRepository) FindByIDAndEmail(ctx context.Context, id int64, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	a, ok := m.accounts[id]
	if !ok || a.Email != email {
		return nil, ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepository) LockByIDAndEmail(ctx context.Context, id int64, email string) (*Account, error) {
	return m.FindByIDAndEmail(ctx, id, email)
}

func (m *mockRepository) Create(ctx context.Context, account Account) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	for _, a := range m.accounts {
		if a.Email == account.Email {
			return nil, ErrEmailTaken
		}
	}
	account.ID = m.nextID
	m.nextID++
	m.accounts[account.ID] = &account
	cp := account
	return &cp, nil
}

func (m *mockRepository) Save(ctx context.Context, account *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.accounts[account.ID]; !ok {
		return ErrAccountNotFound
	}
	m.saves++
	cp := *account
	m.accounts[account.ID] = &cp
	return nil
}

func (m *mockRepository) get(id int64) Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.accounts[id]
}

type mockNotifier struct {
	sent []int64
	err  error
}

func (n *mockNotifier) SendActivation(ctx context.Context, account *Account) error {
	n.sent = append(n.sent, account.ID)
	return n.err
}

type mockObserver struct {
	mu      sync.Mutex
	results []string
}

func (o *mockObserver) ObserveActivation(result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, result)
}

func pendingAccount() Account {
	return Account{ID: 7, Email: "a@example.com", Name: "Ana", IsActive: false}
}

// ============================================================================
// ACTIVATION
// ============================================================================

func TestActivateMatchingAccount(t *testing.T) {
	repo := newMockRepository(pendingAccount())
	svc := NewService(repo, nil, nil, nil)

	msg, err := svc.Activate(context.Background(), ActivationRequest{Email: "a@example.com", ID: "7"})

	require.NoError(t, err)
	assert.Equal(t, MessageActivated, msg)
	stored := repo.get(7)
	assert.True(t, stored.IsActive)
	assert.Equal(t, StateActive, stored.State())
	assert.Equal(t, 1, repo.saves)
}

func TestActivateInvalidParameters(t *testing.T) {
	cases := []struct {
		name string
		req  ActivationRequest
	}{
		{name: "both empty", req: ActivationRequest{}},
		{name: "email empty", req: ActivationRequest{ID: "x"}},
		{name: "id empty", req: ActivationRequest{Email: "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMockRepository(pendingAccount())
			svc := NewService(repo, nil, nil, nil)

			msg, err := svc.Activate(context.Background(), tc.req)

			require.ErrorIs(t, err, ErrInvalidParameters)
			assert.ErrorIs(t, err, shared.ErrValidation)
			assert.Equal(t, MessageInvalidParameters, msg)
			assert.Zero(t, repo.lookups)
			assert.Zero(t, repo.saves)
			assert.False(t, repo.get(7).IsActive)
		})
	}
}

func TestActivateIsIdempotent(t *testing.T) {
	repo := newMockRepository(pendingAccount())
	svc := NewService(repo, nil, nil, nil)
	req := ActivationRequest{Email: "a@example.com", ID: "7"}

	first, err := svc.Activate(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Activate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, repo.get(7).IsActive)
}

func TestActivateNotFound(t *testing.T) {
	cases := []struct {
		name string
		req  ActivationRequest
	}{
		{name: "unknown id", req: ActivationRequest{Email: "a@example.com", ID: "8"}},
		{name: "email mismatch", req: ActivationRequest{Email: "b@example.com", ID: "7"}},
		{name: "non numeric id", req: ActivationRequest{Email: "a@example.com", ID: "seven"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMockRepository(pendingAccount())
			svc := NewService(repo, nil, nil, nil)

			msg, err := svc.Activate(context.Background(), tc.req)

			require.ErrorIs(t, err, ErrAccountNotFound)
			assert.Equal(t, MessageAccountNotFound, msg)
			assert.NotEqual(t, MessageActivated, msg)
			assert.NotEqual(t, MessageInvalidParameters, msg)
			assert.Zero(t, repo.saves)
			assert.False(t, repo.get(7).IsActive)
		})
	}
}

func TestActivateStorageFailure(t *testing.T) {
	repo := newMockRepository(pendingAccount())
	repo.saveErr = errors.New("connection reset")
	svc := NewService(repo, nil, nil, nil)

	msg, err := svc.Activate(context.Background(), ActivationRequest{Email: "a@example.com", ID: "7"})

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAccountNotFound)
	assert.Equal(t, MessageInternalError, msg)
	assert.False(t, repo.get(7).IsActive)
}

func TestActivateScenario(t *testing.T) {
	repo := newMockRepository(pendingAccount())
	svc := NewService(repo, nil, nil, nil)

	msg, err := svc.Activate(context.Background(), ActivationRequest{Email: "a@example.com", ID: "7"})
	require.NoError(t, err)
	assert.Equal(t, MessageActivated, msg)
	assert.True(t, repo.get(7).IsActive)

	msg, err = svc.Activate(context.Background(), ActivationRequest{Email: "", ID: "7"})
	require.ErrorIs(t, err, ErrInvalidParameters)
	assert.Equal(t, MessageInvalidParameters, msg)
	assert.True(t, repo.get(7).IsActive)
}

func TestActivateConcurrentRequestsConverge(t *testing.T) {
	repo := newMockRepository(pendingAccount())
	svc := NewService(repo, nil, nil, nil)
	req := ActivationRequest{Email: "a@example.com", ID: "7"}

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg, err := svc.Activate(context.Background(), req)
			if err == nil && msg != MessageActivated {
				err = errors.New("unexpected message " + msg)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.True(t, repo.get(7).IsActive)
}

func TestActivateReportsOutcomes(t *testing.T) {
	repo := newMockRepository(pendingAccount())
	observer := &mockObserver{}
	svc := NewService(repo, nil, observer, nil)
	ctx := context.Background()

	_, _ = svc.Activate(ctx, ActivationRequest{})
	_, _ = svc.Activate(ctx, ActivationRequest{Email: "x@example.com", ID: "7"})
	_, _ = svc.Activate(ctx, ActivationRequest{Email: "a@example.com", ID: "7"})

	assert.Equal(t, []string{ResultInvalid, ResultNotFound, ResultActivated}, observer.results)
}

// ============================================================================
// REGISTRATION
// ============================================================================

func validSignup() SignupRequest {
	return SignupRequest{
		Email:     "Nuevo@Example.COM",
		Name:      "Nuevo",
		Password1: "supersecret",
		Password2: "supersecret",
	}
}

func TestRegisterCreatesPendingAccount(t *testing.T) {
	repo := newMockRepository()
	notifier := &mockNotifier{}
	svc := NewService(repo, notifier, nil, nil)

	created, err := svc.Register(context.Background(), validSignup())

	require.NoError(t, err)
	assert.Equal(t, "Nuevo@example.com", created.Email)
	assert.False(t, created.IsActive)
	assert.Equal(t, StatePending, created.State())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("supersecret")))
	assert.Equal(t, []int64{created.ID}, notifier.sent)
}

func TestRegisterValidation(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil, nil)

	req := validSignup()
	req.Email = "not-an-email"
	req.Password2 = "different"

	_, err := svc.Register(context.Background(), req)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Contains(t, validationErr.Fields, "email")
	assert.Equal(t, "passwords do not match", validationErr.Fields["password2"])
	assert.Empty(t, repo.accounts)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newMockRepository(Account{ID: 1, Email: "Nuevo@example.com"})
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.Register(context.Background(), validSignup())

	require.ErrorIs(t, err, ErrEmailTaken)
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestRegisterSurvivesNotifierFailure(t *testing.T) {
	repo := newMockRepository()
	notifier := &mockNotifier{err: errors.New("queue down")}
	svc := NewService(repo, notifier, nil, nil)

	created, err := svc.Register(context.Background(), validSignup())

	require.NoError(t, err)
	assert.Len(t, notifier.sent, 1)
	assert.Contains(t, repo.accounts, created.ID)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "Ana.Perez@example.com", NormalizeEmail("  Ana.Perez@EXAMPLE.com "))
	assert.Equal(t, "no-at-sign", NormalizeEmail("no-at-sign"))
}

func TestActivateAcceptsZeroPaddedID(t *testing.T) {
	repo := newMockRepository(pendingAccount())
	svc := NewService(repo, nil, nil, nil)

	msg, err := svc.Activate(context.Background(), ActivationRequest{Email: "a@example.com", ID: "007"})

	require.NoError(t, err)
	assert.Equal(t, MessageActivated, msg)
	assert.True(t, repo.get(7).IsActive)
}
