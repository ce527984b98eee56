package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-account-service/internal/domain/entity"
	repo "github.com/oksasatya/go-account-service/internal/domain/repository"
	"github.com/oksasatya/go-account-service/pkg/mailer"
	mailtpl "github.com/oksasatya/go-account-service/pkg/mailer/templates"
	"github.com/oksasatya/go-account-service/pkg/validation"
)

// PasswordHasher hashes and checks passwords. Compare reports a mismatch as
// (false, nil) and a malformed hash as an error.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) (bool, error)
}

// TokenService signs and verifies identity tokens.
type TokenService interface {
	Issue(identity string, ttl time.Duration) (string, time.Time, error)
	Verify(token string) (string, error)
}

// Notifier accepts email jobs for asynchronous delivery. Enqueue must not block
// on the actual send.
type Notifier interface {
	Enqueue(ctx context.Context, job mailer.EmailJob) error
}

type Options struct {
	AppName         string
	UIURL           string
	VerifyTokenTTL  time.Duration
	SessionTokenTTL time.Duration
}

// ClientInfo describes the caller of a request, for audit events and alerts.
type ClientInfo struct {
	IP        string
	UserAgent string
}

type RegisterInput struct {
	Email     string `json:"email" validate:"email" msg:"Please enter a valid email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password" validate:"pwd" msg:"Password must be at least 8 characters long" redact:"true"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"email" msg:"Please enter a valid email"`
	Password string `json:"password" redact:"true"`
}

type LoginResult struct {
	User      *entity.User
	Token     string
	ExpiresAt time.Time
}

// AuthStatus is the outcome of CheckAuth. Token echoes what the caller presented.
type AuthStatus struct {
	Authenticated bool
	Token         string
}

// AccountService runs the account lifecycle: register, verify, re-verify,
// login, logout and auth checks.
type AccountService struct {
	Repo     repo.UserRepository
	Hasher   PasswordHasher
	Tokens   TokenService
	Notifier Notifier
	Audit    repo.AuditLog
	Logger   *logrus.Logger
	opts     Options
	now      func() time.Time
}

func NewAccountService(r repo.UserRepository, hasher PasswordHasher, tokens TokenService, notifier Notifier, audit repo.AuditLog, logger *logrus.Logger, opts Options) *AccountService {
	if audit == nil {
		audit = repo.NopAuditLog{}
	}
	if opts.VerifyTokenTTL <= 0 {
		opts.VerifyTokenTTL = time.Hour
	}
	if opts.SessionTokenTTL <= 0 {
		opts.SessionTokenTTL = 24 * time.Hour
	}
	return &AccountService{
		Repo:     r,
		Hasher:   hasher,
		Tokens:   tokens,
		Notifier: notifier,
		Audit:    audit,
		Logger:   logger,
		opts:     opts,
		now:      time.Now,
	}
}

// Register creates an unconfirmed user and queues the confirmation email.
// Failures to sign the verification token or queue the email are logged only.
func (s *AccountService) Register(ctx context.Context, in RegisterInput, client ClientInfo) (*entity.User, error) {
	if errs := validation.Struct(in); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	// Advisory; the store's unique constraint has the final word.
	existing, err := s.Repo.FindByEmail(ctx, in.Email)
	switch {
	case err == nil && existing != nil:
		s.record(ctx, entity.ActionRegister, "", in.Email, client, false, "duplicate email")
		return nil, ErrDuplicateEmail
	case err != nil && !errors.Is(err, repo.ErrNotFound):
		return nil, internal("find user by email", err)
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return nil, internal("hash password", err)
	}

	u := &entity.User{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Confirmed:    false,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicateKey) {
			s.record(ctx, entity.ActionRegister, "", in.Email, client, false, "duplicate email")
			return nil, ErrDuplicateEmail
		}
		return nil, internal("create user", err)
	}

	s.sendVerification(ctx, u)
	s.record(ctx, entity.ActionRegister, u.ID, u.Email, client, true, "")
	return u, nil
}

// VerifyEmail confirms the user named by a verification token.
// Verifying an already confirmed user succeeds.
func (s *AccountService) VerifyEmail(ctx context.Context, token string) error {
	id, err := s.Tokens.Verify(token)
	if err != nil {
		s.record(ctx, entity.ActionVerifyEmail, "", "", ClientInfo{}, false, "invalid token")
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if err := s.Repo.UpdateConfirmed(ctx, id, true); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.record(ctx, entity.ActionVerifyEmail, id, "", ClientInfo{}, false, "user not found")
			return ErrNotFound
		}
		return internal("update confirmed", err)
	}
	s.record(ctx, entity.ActionVerifyEmail, id, "", ClientInfo{}, true, "")
	return nil
}

// RequestReVerification sends a fresh verification link to an unconfirmed user
// and a security alert to a confirmed one. Unknown emails succeed silently.
func (s *AccountService) RequestReVerification(ctx context.Context, email string, client ClientInfo) error {
	u, err := s.Repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.record(ctx, entity.ActionReVerify, "", email, client, true, "unknown email")
			return nil
		}
		return internal("find user by email", err)
	}

	if u.Confirmed {
		s.enqueue(ctx, mailer.EmailJob{
			To:       u.Email,
			Template: mailtpl.SecurityAlert,
			Data: mailtpl.NewSecurityAlertData(s.opts.AppName, u.Email,
				mailtpl.WithIP(client.IP),
				mailtpl.WithUserAgent(client.UserAgent),
				mailtpl.WithTime(s.now()),
			),
		})
		s.record(ctx, entity.ActionReVerify, u.ID, u.Email, client, true, "already confirmed")
		return nil
	}

	s.sendVerification(ctx, u)
	s.record(ctx, entity.ActionReVerify, u.ID, u.Email, client, true, "")
	return nil
}

// Login checks credentials and issues a session token.
func (s *AccountService) Login(ctx context.Context, in LoginInput, client ClientInfo) (LoginResult, error) {
	if errs := validation.Struct(in); len(errs) > 0 {
		return LoginResult{}, &ValidationError{Fields: errs}
	}

	u, err := s.Repo.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.record(ctx, entity.ActionLogin, "", in.Email, client, false, "email not found")
			return LoginResult{}, ErrEmailNotFound
		}
		return LoginResult{}, internal("find user by email", err)
	}

	ok, err := s.Hasher.Compare(u.PasswordHash, in.Password)
	if err != nil {
		return LoginResult{}, internal("compare password", err)
	}
	if !ok {
		s.record(ctx, entity.ActionLogin, u.ID, u.Email, client, false, "incorrect password")
		return LoginResult{}, ErrIncorrectPassword
	}

	token, exp, err := s.Tokens.Issue(u.ID, s.opts.SessionTokenTTL)
	if err != nil {
		s.logError("sign session token failed", err, logrus.Fields{"user_id": u.ID})
		return LoginResult{}, &TokenSigningError{Err: err}
	}

	s.record(ctx, entity.ActionLogin, u.ID, u.Email, client, true, "")
	return LoginResult{User: u, Token: token, ExpiresAt: exp}, nil
}

// Logout records the event. Clearing the cookie is up to the transport.
func (s *AccountService) Logout(ctx context.Context, token string, client ClientInfo) {
	var id string
	if token != "" {
		id, _ = s.Tokens.Verify(token)
	}
	s.record(ctx, entity.ActionLogout, id, "", client, true, "")
}

// CheckAuth reports whether token is valid and names an existing user.
func (s *AccountService) CheckAuth(ctx context.Context, token string) AuthStatus {
	st := AuthStatus{Token: token}
	if token == "" {
		return st
	}
	id, err := s.Tokens.Verify(token)
	if err != nil {
		return st
	}
	u, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			s.logError("check auth lookup failed", err, logrus.Fields{"user_id": id})
		}
		return st
	}
	st.Authenticated = u != nil
	return st
}

func (s *AccountService) sendVerification(ctx context.Context, u *entity.User) {
	token, exp, err := s.Tokens.Issue(u.ID, s.opts.VerifyTokenTTL)
	if err != nil {
		s.logError("sign verification token failed", err, logrus.Fields{"user_id": u.ID})
		return
	}
	link := s.opts.UIURL + "/verify/" + token
	s.enqueue(ctx, mailer.EmailJob{
		To:       u.Email,
		Template: mailtpl.VerifyEmail,
		Data:     mailtpl.NewVerifyEmailData(s.opts.AppName, u.FirstName, u.Email, link, mailtpl.WithExpiresAt(exp)),
	})
}

// enqueue hands job to the notifier. A canceled request must not lose the
// email, so the request's cancellation is detached.
func (s *AccountService) enqueue(ctx context.Context, job mailer.EmailJob) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Enqueue(context.WithoutCancel(ctx), job); err != nil {
		s.logError("enqueue email failed", err, logrus.Fields{"template": job.Template, "to": job.To})
	}
}

func (s *AccountService) record(ctx context.Context, action, userID, email string, client ClientInfo, success bool, reason string) {
	s.Audit.Record(context.WithoutCancel(ctx), entity.AuditEvent{
		ID:        uuid.NewString(),
		Action:    action,
		UserID:    userID,
		Email:     email,
		IP:        client.IP,
		UserAgent: client.UserAgent,
		Success:   success,
		Reason:    reason,
		At:        s.now().UTC(),
	})
}

func (s *AccountService) logError(msg string, err error, fields logrus.Fields) {
	if s.Logger == nil {
		return
	}
	s.Logger.WithError(err).WithFields(fields).Error(msg)
}
