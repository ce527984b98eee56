package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-account-service/internal/domain/entity"
	repo "github.com/oksasatya/go-account-service/internal/domain/repository"
	"github.com/oksasatya/go-account-service/internal/infrastructure/memory"
	"github.com/oksasatya/go-account-service/pkg/helpers"
	"github.com/oksasatya/go-account-service/pkg/mailer"
)

const testSecret = "test-secret"

type recordingNotifier struct {
	mu   sync.Mutex
	jobs []mailer.EmailJob
	err  error
}

func (n *recordingNotifier) Enqueue(_ context.Context, job mailer.EmailJob) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.jobs = append(n.jobs, job)
	return nil
}

func (n *recordingNotifier) Jobs() []mailer.EmailJob {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]mailer.EmailJob(nil), n.jobs...)
}

type recordingAudit struct {
	mu     sync.Mutex
	events []entity.AuditEvent
}

func (a *recordingAudit) Record(_ context.Context, ev entity.AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
}

func (a *recordingAudit) Last() entity.AuditEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.events[len(a.events)-1]
}

// faultyRepo wraps a real store and injects errors per operation.
type faultyRepo struct {
	repo.UserRepository
	findEmailErr error
	findIDErr    error
	createErr    error
	updateErr    error
}

func (r *faultyRepo) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	if r.findEmailErr != nil {
		return nil, r.findEmailErr
	}
	return r.UserRepository.FindByEmail(ctx, email)
}

func (r *faultyRepo) FindByID(ctx context.Context, id string) (*entity.User, error) {
	if r.findIDErr != nil {
		return nil, r.findIDErr
	}
	return r.UserRepository.FindByID(ctx, id)
}

func (r *faultyRepo) Create(ctx context.Context, u *entity.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	return r.UserRepository.Create(ctx, u)
}

func (r *faultyRepo) UpdateConfirmed(ctx context.Context, id string, confirmed bool) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	return r.UserRepository.UpdateConfirmed(ctx, id, confirmed)
}

type failingSigner struct {
	*helpers.JWTManager
	err error
}

func (f failingSigner) Issue(string, time.Duration) (string, time.Time, error) {
	return "", time.Time{}, f.err
}

var errStore = errors.New("store unavailable")

type fixture struct {
	svc      *AccountService
	store    *memory.UserRepository
	repo     *faultyRepo
	tokens   *helpers.JWTManager
	hasher   helpers.BcryptHasher
	notifier *recordingNotifier
	audit    *recordingAudit
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    memory.NewUserRepository(),
		tokens:   helpers.NewJWTManager(testSecret),
		hasher:   helpers.NewBcryptHasher(bcrypt.MinCost),
		notifier: &recordingNotifier{},
		audit:    &recordingAudit{},
	}
	f.repo = &faultyRepo{UserRepository: f.store}
	f.svc = NewAccountService(f.repo, f.hasher, f.tokens, f.notifier, f.audit, helpers.NewDiscardLogger(), Options{
		AppName:         "Acme",
		UIURL:           "https://ui.example.com",
		VerifyTokenTTL:  time.Hour,
		SessionTokenTTL: 24 * time.Hour,
	})
	return f
}

// seedUser stores a user with password "password123" directly through the store.
func (f *fixture) seedUser(t *testing.T, email string, confirmed bool) *entity.User {
	t.Helper()
	hash, err := f.hasher.Hash("password123")
	require.NoError(t, err)
	u := &entity.User{Email: email, PasswordHash: hash, FirstName: "Ann"}
	require.NoError(t, f.store.Create(context.Background(), u))
	if confirmed {
		require.NoError(t, f.store.UpdateConfirmed(context.Background(), u.ID, true))
		u.Confirmed = true
	}
	return u
}

var client = ClientInfo{IP: "203.0.113.7", UserAgent: "curl/8.0"}
