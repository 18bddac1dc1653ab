package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deppfellow/covid-api/internal/lib/metrics"
	"github.com/deppfellow/covid-api/internal/lib/token"
	"github.com/deppfellow/covid-api/internal/model"
	"github.com/deppfellow/covid-api/internal/repository"
	"github.com/deppfellow/covid-api/internal/server"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// WelcomeNotifier schedules the welcome email for a new account.
type WelcomeNotifier interface {
	EnqueueWelcomeEmail(ctx context.Context, to, userName string) error
}

// AuthService registers users, checks credentials and issues tokens.
type AuthService struct {
	users      repository.UserStore
	issuer     *token.Issuer
	bcryptCost int
	notifier   WelcomeNotifier
	metrics    *metrics.Metrics
	logger     *zerolog.Logger

	// dummyHash is compared against when the email is unknown so both
	// login failure paths cost one bcrypt comparison.
	dummyHash []byte
}

// RegisterInput carries validated registration fields.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// LoginResult is a successful login.
type LoginResult struct {
	Token  string
	UserID string
}

func NewAuthService(s *server.Server, users repository.UserStore) (*AuthService, error) {
	cost := s.Config.Auth.BcryptCost
	dummyHash, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare password hasher: %w", err)
	}

	svc := &AuthService{
		users:      users,
		issuer:     token.NewIssuer(s.Config.Auth.SecretKey, s.Config.Auth.TokenTTL),
		bcryptCost: cost,
		metrics:    s.Metrics,
		logger:     s.Logger,
		dummyHash:  dummyHash,
	}
	if s.Job != nil {
		svc.notifier = s.Job
	}
	return svc, nil
}

// Register creates a user and returns its id.
func (a *AuthService) Register(ctx context.Context, in RegisterInput) (string, error) {
	exists, err := a.users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return "", err
	}
	if exists {
		a.metrics.AuthEvent("register", "duplicate")
		return "", ErrDuplicateEmail
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), a.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
	}
	if err := a.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			a.metrics.AuthEvent("register", "duplicate")
			return "", ErrDuplicateEmail
		}
		return "", err
	}

	a.metrics.AuthEvent("register", "success")

	if a.notifier != nil {
		enqueueCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := a.notifier.EnqueueWelcomeEmail(enqueueCtx, user.Email, user.Name); err != nil {
			a.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to enqueue welcome email")
		}
	}

	return user.ID, nil
}

// Login checks credentials and issues a token. Unknown email and wrong
// password both return ErrInvalidCredentials.
func (a *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := a.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash := a.dummyHash
	if user != nil {
		hash = []byte(user.PasswordHash)
	}

	if cmpErr := bcrypt.CompareHashAndPassword(hash, []byte(password)); cmpErr != nil || user == nil {
		a.metrics.AuthEvent("login", "failure")
		return nil, ErrInvalidCredentials
	}

	signed, err := a.issuer.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	a.metrics.AuthEvent("login", "success")
	return &LoginResult{Token: signed, UserID: user.ID}, nil
}

// VerifyToken returns the user id carried by a valid token.
func (a *AuthService) VerifyToken(tokenString string) (string, error) {
	userID, err := a.issuer.Verify(tokenString)
	if err != nil {
		a.metrics.AuthEvent("verify", "failure")
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return userID, nil
}
