// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/webauth/pkg/errutil"
)

// Notifier delivers account e-mails. Implementations may deliver asynchronously;
// a nil error means the message was accepted, not that it arrived.
type Notifier interface {
	SendResetCode(ctx context.Context, to, code string) error
	SendTestEmail(ctx context.Context) error
}

// OutcomeRecorder counts flow outcomes, e.g. for metrics.
type OutcomeRecorder interface {
	RecordOutcome(operation, status string)
}

type nopRecorder struct{}

func (nopRecorder) RecordOutcome(string, string) {}

// Outcome statuses passed to OutcomeRecorder.
const (
	StatusOK        = "ok"
	StatusRejected  = "rejected"
	StatusError     = "error"
	StatusUnmatched = "unmatched"
)

// ServiceDeps holds the collaborators of a Service. Recorder and Logger are optional.
type ServiceDeps struct {
	Users    UserDirectory
	Hasher   PasswordHasher
	Tokens   *TokenIssuer
	Notifier Notifier
	Recorder OutcomeRecorder
	Logger   *slog.Logger
}

// Service implements the account flows.
type Service struct {
	users    UserDirectory
	hasher   PasswordHasher
	tokens   *TokenIssuer
	notifier Notifier
	recorder OutcomeRecorder
	logger   *slog.Logger
}

// NewService creates a Service, validating required dependencies.
func NewService(deps ServiceDeps) (*Service, error) {
	if deps.Users == nil {
		return nil, oops.Errorf("user directory is required")
	}
	if deps.Hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if deps.Tokens == nil {
		return nil, oops.Errorf("token issuer is required")
	}
	if deps.Notifier == nil {
		return nil, oops.Errorf("notifier is required")
	}

	s := &Service{
		users:    deps.Users,
		hasher:   deps.Hasher,
		tokens:   deps.Tokens,
		notifier: deps.Notifier,
		recorder: deps.Recorder,
		logger:   deps.Logger,
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// RegisterInput is the payload of Register.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register creates an account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	user, err := s.register(ctx, in)
	s.record("register", err)
	return user, err
}

func (s *Service) register(ctx context.Context, in RegisterInput) (*User, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, oops.Code(CodeNameRequired).Errorf("name is required")
	}
	if err := ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	email := NormalizeEmail(in.Email)
	if email == "" {
		return nil, oops.Code(CodeInvalidInput).With("field", "email").Errorf("email is required")
	}

	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, oops.Code(CodeDuplicateEmail).With("email", email).Wrap(ErrDuplicateEmail)
	case !errors.Is(err, ErrNotFound):
		return nil, oops.Code(CodeRegisterFailed).
			With("operation", "find by email").
			With("email", email).
			Wrap(err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, oops.Code(CodeRegisterFailed).With("operation", "hash password").Wrap(err)
	}

	user, err := NewUser(in.Name, email, hash)
	if err != nil {
		return nil, err
	}

	if err := s.users.Insert(ctx, user); err != nil {
		// A concurrent registration can win between the lookup and the insert.
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, oops.Code(CodeDuplicateEmail).With("email", email).Wrap(ErrDuplicateEmail)
		}
		return nil, oops.Code(CodeRegisterFailed).
			With("operation", "insert user").
			With("email", email).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String())
	return user, nil
}

// Session is the result of a successful Login.
type Session struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}

// Login checks credentials and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	session, err := s.login(ctx, email, password)
	s.record("login", err)
	return session, err
}

func (s *Service) login(ctx context.Context, email, password string) (*Session, error) {
	email = NormalizeEmail(email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeUserNotFound).With("email", email).Errorf("user not found")
		}
		return nil, oops.Code(CodeLoginFailed).
			With("operation", "find by email").
			With("email", email).
			Wrap(err)
	}

	valid, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, oops.Code(CodeLoginFailed).
			With("operation", "verify password").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	if !valid {
		return nil, oops.Code(CodeWrongPassword).With("user_id", user.ID.String()).Errorf("wrong password")
	}

	s.upgradeHash(ctx, user, password)

	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, oops.Code(CodeLoginFailed).
			With("operation", "issue token").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	return &Session{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// upgradeHash re-hashes legacy credentials after a successful login.
// Failures are logged; the login still succeeds.
func (s *Service) upgradeHash(ctx context.Context, user *User, password string) {
	if !s.hasher.NeedsUpgrade(user.PasswordHash) {
		return
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.WarnContext(ctx, "best-effort hash upgrade failed",
			"operation", "hash", "user_id", user.ID.String(), "error", err)
		return
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		s.logger.WarnContext(ctx, "best-effort hash upgrade failed",
			"operation", "update_password_hash", "user_id", user.ID.String(), "error", err)
		return
	}
	user.PasswordHash = hash
}

// Authenticate resolves a session token to a Principal.
func (s *Service) Authenticate(token string) (Principal, error) {
	id, err := s.tokens.Verify(token)
	if err != nil {
		return Principal{}, err
	}
	return Principal{UserID: id}, nil
}

// CurrentUser loads the user behind p. A missing user is not an error: it
// returns (nil, nil) and logs a warning, since the token itself was valid.
func (s *Service) CurrentUser(ctx context.Context, p Principal) (*User, error) {
	user, err := s.users.FindByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, "current user not found", "user_id", p.UserID.String())
			s.recorder.RecordOutcome("current_user", StatusUnmatched)
			return nil, nil
		}
		s.recorder.RecordOutcome("current_user", StatusError)
		return nil, oops.Code(CodeCurrentUserFailed).
			With("operation", "find by id").
			With("user_id", p.UserID.String()).
			Wrap(err)
	}
	s.logger.DebugContext(ctx, "current user resolved", "user_id", user.ID.String())
	s.recorder.RecordOutcome("current_user", StatusOK)
	return user, nil
}

// ForgotPassword stores a new reset code for the user and hands it to the
// notifier. Notification failures are logged and do not fail the call.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	err := s.forgotPassword(ctx, email)
	s.record("forgot_password", err)
	return err
}

func (s *Service) forgotPassword(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return oops.Code(CodeUserNotFound).Errorf("user not found")
	}

	code, err := GenerateResetCode()
	if err != nil {
		return oops.Code(CodeForgotPasswordFailed).With("operation", "generate reset code").Wrap(err)
	}

	user, err := s.users.SetResetCode(ctx, email, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeUserNotFound).With("email", email).Errorf("user not found")
		}
		return oops.Code(CodeForgotPasswordFailed).
			With("operation", "set reset code").
			With("email", email).
			Wrap(err)
	}

	if err := s.notifier.SendResetCode(ctx, user.Email, code); err != nil {
		errutil.LogErrorContext(ctx, s.logger, "reset code notification failed", oops.
			With("operation", "send reset code").
			With("user_id", user.ID.String()).
			Wrap(err))
		s.recorder.RecordOutcome("reset_code_notification", StatusError)
	}
	return nil
}

// ResetInput is the payload of ResetPassword.
type ResetInput struct {
	Email       string
	Code        string
	NewPassword string
}

// ResetPassword replaces the password of the user whose pending reset code
// matches. When nothing matches the call still succeeds; the miss is logged
// and counted as unmatched so clients cannot probe for codes.
func (s *Service) ResetPassword(ctx context.Context, in ResetInput) error {
	matched, err := s.resetPassword(ctx, in)
	switch {
	case err != nil:
		s.record("reset_password", err)
	case !matched:
		s.recorder.RecordOutcome("reset_password", StatusUnmatched)
	default:
		s.recorder.RecordOutcome("reset_password", StatusOK)
	}
	return err
}

func (s *Service) resetPassword(ctx context.Context, in ResetInput) (bool, error) {
	email := NormalizeEmail(in.Email)
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if email == "" || code == "" || in.NewPassword == "" {
		return false, oops.Code(CodeInvalidInput).Errorf("email, code and new password are required")
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return false, oops.Code(CodeResetPasswordFailed).With("operation", "hash password").Wrap(err)
	}

	matched, err := s.users.ResetPassword(ctx, email, code, hash)
	if err != nil {
		return false, oops.Code(CodeResetPasswordFailed).
			With("operation", "reset password").
			With("email", email).
			Wrap(err)
	}
	if !matched {
		s.logger.WarnContext(ctx, "reset password matched no user", "email", email)
	}
	return matched, nil
}

// SendTestEmail hands a fixed test message to the notifier. Failures are logged only.
func (s *Service) SendTestEmail(ctx context.Context) {
	if err := s.notifier.SendTestEmail(ctx); err != nil {
		errutil.LogErrorContext(ctx, s.logger, "test email failed", oops.With("operation", "send test email").Wrap(err))
		s.recorder.RecordOutcome("test_email", StatusError)
		return
	}
	s.recorder.RecordOutcome("test_email", StatusOK)
}

func (s *Service) record(operation string, err error) {
	switch {
	case err == nil:
		s.recorder.RecordOutcome(operation, StatusOK)
	case isClientError(err):
		s.recorder.RecordOutcome(operation, StatusRejected)
	default:
		s.recorder.RecordOutcome(operation, StatusError)
	}
}

func isClientError(err error) bool {
	switch errutil.Code(err) {
	case CodeNameRequired, CodePasswordTooShort, CodeInvalidInput,
		CodeDuplicateEmail, CodeUserNotFound, CodeWrongPassword:
		return true
	}
	return false
}
