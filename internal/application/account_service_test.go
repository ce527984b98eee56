package application

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-account-service/internal/domain/entity"
	repo "github.com/oksasatya/go-account-service/internal/domain/repository"
	"github.com/oksasatya/go-account-service/pkg/helpers"
	"github.com/oksasatya/go-account-service/pkg/mailer"
	mailtpl "github.com/oksasatya/go-account-service/pkg/mailer/templates"
)

var validRegistration = RegisterInput{
	Email:     "ann@example.com",
	FirstName: "Ann",
	LastName:  "Lee",
	Password:  "password123",
}

func verifyLinkToken(t *testing.T, job mailer.EmailJob) string {
	t.Helper()
	link, _ := job.Data["VerifyURL"].(string)
	require.True(t, strings.HasPrefix(link, "https://ui.example.com/verify/"), "link %q", link)
	return strings.TrimPrefix(link, "https://ui.example.com/verify/")
}

func TestRegister_CreatesUnconfirmedUserAndQueuesVerification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, validRegistration, client)
	require.NoError(t, err)
	require.NotEmpty(t, u.ID)

	stored, err := f.store.FindByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.False(t, stored.Confirmed)
	assert.Equal(t, "Ann", stored.FirstName)
	assert.Equal(t, "Lee", stored.LastName)
	assert.NotEqual(t, "password123", stored.PasswordHash)
	ok, err := f.hasher.Compare(stored.PasswordHash, "password123")
	require.NoError(t, err)
	assert.True(t, ok)

	jobs := f.notifier.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "ann@example.com", jobs[0].To)
	assert.Equal(t, mailtpl.VerifyEmail, jobs[0].Template)

	id, err := f.tokens.Verify(verifyLinkToken(t, jobs[0]))
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)

	subject, _, html, err := mailer.Render(jobs[0])
	require.NoError(t, err)
	assert.Equal(t, "Acme Confirmation Email", subject)
	assert.Contains(t, html, "Please click this link to confirm your email")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, validRegistration, client)
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, validRegistration, client)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.Equal(t, "A user with that email already exists", err.Error())
	assert.Equal(t, 1, f.store.Len())
	assert.Len(t, f.notifier.Jobs(), 1)
}

func TestRegister_RacingCreateMapsToDuplicate(t *testing.T) {
	f := newFixture(t)
	f.repo.createErr = repo.ErrDuplicateKey

	_, err := f.svc.Register(context.Background(), validRegistration, client)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestRegister_ValidationItemizesEveryField(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{Email: "not-an-email", Password: "short"}, client)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 2)

	assert.Equal(t, "email", verr.Fields[0].Param)
	assert.Equal(t, "Please enter a valid email", verr.Fields[0].Msg)
	assert.Equal(t, "not-an-email", verr.Fields[0].Value)
	assert.Equal(t, "body", verr.Fields[0].Location)

	assert.Equal(t, "password", verr.Fields[1].Param)
	assert.Equal(t, "Password must be at least 8 characters long", verr.Fields[1].Msg)
	assert.Nil(t, verr.Fields[1].Value)

	assert.Equal(t, 0, f.store.Len())
	assert.Empty(t, f.notifier.Jobs())
}

func TestRegister_StoreFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	f.repo.createErr = errStore

	_, err := f.svc.Register(context.Background(), validRegistration, client)
	var ierr *InternalError
	require.ErrorAs(t, err, &ierr)
	assert.ErrorIs(t, err, errStore)
}

func TestRegister_LookupFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	f.repo.findEmailErr = errStore

	_, err := f.svc.Register(context.Background(), validRegistration, client)
	var ierr *InternalError
	assert.ErrorAs(t, err, &ierr)
	assert.Equal(t, 0, f.store.Len())
}

func TestRegister_EmailFailuresDoNotFailRegistration(t *testing.T) {
	t.Run("enqueue fails", func(t *testing.T) {
		f := newFixture(t)
		f.notifier.err = mailer.ErrQueueFull

		_, err := f.svc.Register(context.Background(), validRegistration, client)
		require.NoError(t, err)
		assert.Equal(t, 1, f.store.Len())
	})

	t.Run("signing fails", func(t *testing.T) {
		f := newFixture(t)
		f.svc.Tokens = failingSigner{JWTManager: f.tokens, err: errors.New("sign failed")}

		_, err := f.svc.Register(context.Background(), validRegistration, client)
		require.NoError(t, err)
		assert.Equal(t, 1, f.store.Len())
		assert.Empty(t, f.notifier.Jobs())
	})
}

func TestVerifyEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, validRegistration, client)
	require.NoError(t, err)
	token := verifyLinkToken(t, f.notifier.Jobs()[0])

	require.NoError(t, f.svc.VerifyEmail(ctx, token))
	stored, err := f.store.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, stored.Confirmed)

	// Confirmed stays true and re-verifying succeeds.
	require.NoError(t, f.svc.VerifyEmail(ctx, token))
	stored, err = f.store.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, stored.Confirmed)
}

func TestVerifyEmail_ConfirmsOnlyTokenOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ann := f.seedUser(t, "ann@example.com", false)
	bob := f.seedUser(t, "bob@example.com", false)

	tok, _, err := f.tokens.Issue(ann.ID, time.Hour)
	require.NoError(t, err)
	require.NoError(t, f.svc.VerifyEmail(ctx, tok))

	storedAnn, err := f.store.FindByID(ctx, ann.ID)
	require.NoError(t, err)
	assert.True(t, storedAnn.Confirmed)

	storedBob, err := f.store.FindByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.False(t, storedBob.Confirmed)
}

func TestVerifyEmail_Failures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t, "ann@example.com", false)

	t.Run("garbage token", func(t *testing.T) {
		assert.ErrorIs(t, f.svc.VerifyEmail(ctx, "garbage"), ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		past := f.tokens.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) })
		tok, _, err := past.Issue(u.ID, time.Hour)
		require.NoError(t, err)
		assert.ErrorIs(t, f.svc.VerifyEmail(ctx, tok), ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		tok, _, err := helpers.NewJWTManager("other").Issue(u.ID, time.Hour)
		require.NoError(t, err)
		assert.ErrorIs(t, f.svc.VerifyEmail(ctx, tok), ErrInvalidToken)
	})

	t.Run("user gone", func(t *testing.T) {
		tok, _, err := f.tokens.Issue("00000000-0000-0000-0000-000000000000", time.Hour)
		require.NoError(t, err)
		assert.ErrorIs(t, f.svc.VerifyEmail(ctx, tok), ErrNotFound)
	})

	t.Run("store failure", func(t *testing.T) {
		f.repo.updateErr = errStore
		defer func() { f.repo.updateErr = nil }()
		tok, _, err := f.tokens.Issue(u.ID, time.Hour)
		require.NoError(t, err)
		var ierr *InternalError
		assert.ErrorAs(t, f.svc.VerifyEmail(ctx, tok), &ierr)
	})

	stored, err := f.store.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, stored.Confirmed)
}

func TestRequestReVerification(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown email succeeds silently", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.svc.RequestReVerification(ctx, "nobody@example.com", client))
		assert.Empty(t, f.notifier.Jobs())
	})

	t.Run("unconfirmed user gets a new link", func(t *testing.T) {
		f := newFixture(t)
		u := f.seedUser(t, "ann@example.com", false)

		require.NoError(t, f.svc.RequestReVerification(ctx, "ann@example.com", client))
		jobs := f.notifier.Jobs()
		require.Len(t, jobs, 1)
		assert.Equal(t, mailtpl.VerifyEmail, jobs[0].Template)
		id, err := f.tokens.Verify(verifyLinkToken(t, jobs[0]))
		require.NoError(t, err)
		assert.Equal(t, u.ID, id)
	})

	t.Run("confirmed user gets a security alert", func(t *testing.T) {
		f := newFixture(t)
		f.seedUser(t, "ann@example.com", true)

		require.NoError(t, f.svc.RequestReVerification(ctx, "ann@example.com", client))
		jobs := f.notifier.Jobs()
		require.Len(t, jobs, 1)
		assert.Equal(t, mailtpl.SecurityAlert, jobs[0].Template)
		assert.Equal(t, "ann@example.com", jobs[0].To)
		assert.Empty(t, jobs[0].Data["VerifyURL"])

		subject, text, _, err := mailer.Render(jobs[0])
		require.NoError(t, err)
		assert.Equal(t, "Acme Security Alert", subject)
		assert.Contains(t, text, "203.0.113.7")
	})

	t.Run("lookup failure", func(t *testing.T) {
		f := newFixture(t)
		f.repo.findEmailErr = errStore
		assert.Error(t, f.svc.RequestReVerification(ctx, "ann@example.com", client))
	})

	t.Run("enqueue failure is swallowed", func(t *testing.T) {
		f := newFixture(t)
		f.seedUser(t, "ann@example.com", false)
		f.notifier.err = mailer.ErrQueueFull
		assert.NoError(t, f.svc.RequestReVerification(ctx, "ann@example.com", client))
	})
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t, "ann@example.com", false)

	before := time.Now()
	res, err := f.svc.Login(ctx, LoginInput{Email: "ann@example.com", Password: "password123"}, client)
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.User.ID)

	id, err := f.tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)
	assert.WithinDuration(t, before.Add(24*time.Hour), res.ExpiresAt, 5*time.Second)

	ev := f.audit.Last()
	assert.Equal(t, entity.ActionLogin, ev.Action)
	assert.True(t, ev.Success)
	assert.Equal(t, "203.0.113.7", ev.IP)
}

func TestLogin_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid email", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Login(ctx, LoginInput{Email: "nope", Password: "x"}, client)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "Please enter a valid email", verr.Fields[0].Msg)
	})

	t.Run("email not found", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "password123"}, client)
		assert.ErrorIs(t, err, ErrEmailNotFound)
		assert.Equal(t, "Email not found", err.Error())
	})

	t.Run("incorrect password", func(t *testing.T) {
		f := newFixture(t)
		f.seedUser(t, "ann@example.com", true)
		res, err := f.svc.Login(ctx, LoginInput{Email: "ann@example.com", Password: "wrong-password"}, client)
		assert.ErrorIs(t, err, ErrIncorrectPassword)
		assert.Equal(t, "Incorrect Password", err.Error())
		assert.Empty(t, res.Token)
		assert.False(t, f.audit.Last().Success)
	})

	t.Run("malformed stored hash", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.store.Create(ctx, &entity.User{Email: "ann@example.com", PasswordHash: "not-bcrypt"}))
		_, err := f.svc.Login(ctx, LoginInput{Email: "ann@example.com", Password: "password123"}, client)
		var ierr *InternalError
		assert.ErrorAs(t, err, &ierr)
	})

	t.Run("signing failure carries the signer message", func(t *testing.T) {
		f := newFixture(t)
		f.seedUser(t, "ann@example.com", true)
		f.svc.Tokens = failingSigner{JWTManager: f.tokens, err: errors.New("key is invalid")}
		_, err := f.svc.Login(ctx, LoginInput{Email: "ann@example.com", Password: "password123"}, client)
		var serr *TokenSigningError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, "key is invalid", serr.Error())
	})

	t.Run("store failure", func(t *testing.T) {
		f := newFixture(t)
		f.repo.findEmailErr = errStore
		_, err := f.svc.Login(ctx, LoginInput{Email: "ann@example.com", Password: "password123"}, client)
		var ierr *InternalError
		assert.ErrorAs(t, err, &ierr)
	})
}

func TestCheckAuth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t, "ann@example.com", true)
	tok, _, err := f.tokens.Issue(u.ID, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, AuthStatus{}, f.svc.CheckAuth(ctx, ""))
	assert.Equal(t, AuthStatus{Authenticated: true, Token: tok}, f.svc.CheckAuth(ctx, tok))
	assert.Equal(t, AuthStatus{Token: "garbage"}, f.svc.CheckAuth(ctx, "garbage"))

	gone, _, err := f.tokens.Issue("missing-user", time.Hour)
	require.NoError(t, err)
	assert.False(t, f.svc.CheckAuth(ctx, gone).Authenticated)

	past := f.tokens.WithClock(func() time.Time { return time.Now().Add(-48 * time.Hour) })
	expired, _, err := past.Issue(u.ID, 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, f.svc.CheckAuth(ctx, expired).Authenticated)

	f.repo.findIDErr = errStore
	assert.False(t, f.svc.CheckAuth(ctx, tok).Authenticated)
}

func TestLogout_RecordsAudit(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, "ann@example.com", true)
	tok, _, err := f.tokens.Issue(u.ID, time.Hour)
	require.NoError(t, err)

	f.svc.Logout(context.Background(), tok, client)
	ev := f.audit.Last()
	assert.Equal(t, entity.ActionLogout, ev.Action)
	assert.Equal(t, u.ID, ev.UserID)

	f.svc.Logout(context.Background(), "", client)
	assert.Empty(t, f.audit.Last().UserID)
}

func TestAuditEventsNeverCarrySecrets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, validRegistration, client)
	require.NoError(t, err)
	res, err := f.svc.Login(ctx, LoginInput{Email: "ann@example.com", Password: "password123"}, client)
	require.NoError(t, err)
	_, _ = f.svc.Login(ctx, LoginInput{Email: "ann@example.com", Password: "wrong-password"}, client)

	stored, err := f.store.FindByEmail(ctx, "ann@example.com")
	require.NoError(t, err)

	b, err := json.Marshal(f.audit.events)
	require.NoError(t, err)
	s := string(b)
	assert.NotContains(t, s, "password123")
	assert.NotContains(t, s, "wrong-password")
	assert.NotContains(t, s, stored.PasswordHash)
	assert.NotContains(t, s, res.Token)
}
