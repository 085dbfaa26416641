package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"strings"

	"threads/internal/mailer"
	"threads/internal/models"
	"threads/internal/observability"
	"threads/internal/repository"
	"threads/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

// AuthConfig carries the settings AuthService reads from configuration.
type AuthConfig struct {
	FrontendURL   string
	DefaultAvatar string
}

// RegisterInput is the registration request.
type RegisterInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Bio      string `json:"bio"`
	Avatar   string `json:"avatar"`
}

// AuthService owns credentials: registration, login and password reset.
type AuthService struct {
	users    repository.UserRepository
	tokens   *TokenService
	mail     mailer.Mailer
	audit    *observability.AuditLogger
	cfg      AuthConfig
	hashCost int
}

// NewAuthService returns a new AuthService.
func NewAuthService(
	users repository.UserRepository,
	tokens *TokenService,
	mail mailer.Mailer,
	audit *observability.AuditLogger,
	cfg AuthConfig,
) *AuthService {
	if audit == nil {
		audit = observability.NewAuditLogger(nil)
	}
	return &AuthService{
		users:    users,
		tokens:   tokens,
		mail:     mail,
		audit:    audit,
		cfg:      cfg,
		hashCost: bcrypt.DefaultCost,
	}
}

// Register validates input, stores a new user with a bcrypt hash and returns it with a session token.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (user *models.User, token string, err error) {
	ctx, span := observability.StartSpan(ctx, "auth", "register")
	defer func() { span.End(err) }()

	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)

	if in.Email == "" || in.Username == "" || in.Password == "" {
		return nil, "", models.NewValidationError(validation.ErrRequiredFields.Error())
	}
	for _, check := range []error{
		validation.ValidateEmail(in.Email),
		validation.ValidatePassword(in.Password),
		validation.ValidateUsername(in.Username),
		validation.ValidateProfileText(in.FullName, in.Bio),
	} {
		if check != nil {
			s.audit.AuthEvent(ctx, "register", observability.OutcomeFailure, slog.String("reason", "validation"))
			return nil, "", models.NewValidationError(check.Error())
		}
	}

	existing, err := s.users.FindByEmailOrUsername(ctx, in.Email, in.Username)
	if err != nil {
		return nil, "", err
	}
	if existing != nil {
		s.audit.AuthEvent(ctx, "register", observability.OutcomeFailure, slog.String("reason", "conflict"))
		return nil, "", models.NewConflictError("Email or username already in use")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, "", models.NewInternalError(err)
	}

	user = &models.User{
		Email:    in.Email,
		Username: in.Username,
		Password: string(hash),
		FullName: in.FullName,
		Bio:      in.Bio,
		Avatar:   in.Avatar,
	}
	if user.FullName == "" {
		user.FullName = fmt.Sprintf("user_%d", rand.Intn(100000))
	}
	if user.Avatar == "" {
		user.Avatar = s.cfg.DefaultAvatar
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err = s.tokens.IssueSessionToken(user.ID)
	if err != nil {
		return nil, "", models.NewInternalError(err)
	}

	span.AddAttributes(attribute.Int64("user.id", int64(user.ID)))
	s.audit.AuthEvent(ctx, "register", observability.OutcomeSuccess, slog.Uint64("user_id", uint64(user.ID)))
	return user, token, nil
}

// Login returns a session token when password matches the stored hash for email.
func (s *AuthService) Login(ctx context.Context, email, password string) (token string, err error) {
	ctx, span := observability.StartSpan(ctx, "auth", "login")
	defer func() { span.End(err) }()

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", models.NewValidationError("Email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if user == nil {
		s.audit.AuthEvent(ctx, "login", observability.OutcomeFailure, slog.String("reason", "unknown_email"))
		return "", models.NewNotFoundError("User", nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		s.audit.AuthEvent(ctx, "login", observability.OutcomeFailure,
			slog.String("reason", "bad_password"), slog.Uint64("user_id", uint64(user.ID)))
		return "", models.NewInvalidCredentialsError()
	}

	token, err = s.tokens.IssueSessionToken(user.ID)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	s.audit.AuthEvent(ctx, "login", observability.OutcomeSuccess, slog.Uint64("user_id", uint64(user.ID)))
	return token, nil
}

// ForgotPassword mails a reset link for the account registered under email.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (err error) {
	ctx, span := observability.StartSpan(ctx, "auth", "forgot_password")
	defer func() { span.End(err) }()

	email = strings.TrimSpace(email)
	if email == "" {
		return models.NewValidationError("Email is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		s.audit.AuthEvent(ctx, "forgot_password", observability.OutcomeFailure, slog.String("reason", "unknown_email"))
		return models.NewNotFoundError("User", nil)
	}

	token, err := s.tokens.IssueResetToken(user.ID, user.Password)
	if err != nil {
		return models.NewInternalError(err)
	}

	link := s.cfg.FrontendURL + "/reset-password?token=" + url.QueryEscape(token)
	if err := s.mail.Send(ctx, mailer.PasswordResetMessage(user.Email, link)); err != nil {
		s.audit.AuthEvent(ctx, "forgot_password", observability.OutcomeFailure,
			slog.String("reason", "mail"), slog.Uint64("user_id", uint64(user.ID)))
		return models.NewInternalError(err)
	}

	s.audit.AuthEvent(ctx, "forgot_password", observability.OutcomeSuccess, slog.Uint64("user_id", uint64(user.ID)))
	return nil
}

// ResetPassword replaces the password of the user named by a valid, unused reset token.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) (err error) {
	ctx, span := observability.StartSpan(ctx, "auth", "reset_password")
	defer func() { span.End(err) }()

	claims, err := s.tokens.VerifyReset(token)
	if err != nil {
		s.audit.AuthEvent(ctx, "reset_password", observability.OutcomeFailure, slog.String("reason", "token"))
		return err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return models.NewInvalidTokenError(errors.New("token user no longer exists"))
		}
		return err
	}
	if claims.Fingerprint != PasswordFingerprint(user.Password) {
		s.audit.AuthEvent(ctx, "reset_password", observability.OutcomeFailure,
			slog.String("reason", "reused"), slog.Uint64("user_id", uint64(user.ID)))
		return models.NewInvalidTokenError(errors.New("reset token already used"))
	}

	if err := validation.ValidatePassword(newPassword); err != nil {
		return models.NewValidationError(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.hashCost)
	if err != nil {
		return models.NewInternalError(err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}

	s.audit.AuthEvent(ctx, "reset_password", observability.OutcomeSuccess, slog.Uint64("user_id", uint64(user.ID)))
	return nil
}
