// Package service implements the PropertyHub use cases on top of the ports.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Strob0t/PropertyHub/internal/config"
	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/user"
	"github.com/Strob0t/PropertyHub/internal/port/database"
)

var errBadCredentials = fmt.Errorf("%w: invalid email or password", domain.ErrUnauthorized)

// Profile is the caller's own account as returned by /auth/me.
type Profile struct {
	User       user.User    `json:"user"`
	Subscribed bool         `json:"isSubscribed"`
	Client     *user.Client `json:"client,omitempty"`
}

// AuthService handles registration, login and the caller's own sessions.
type AuthService struct {
	store  database.UserStore
	tokens *TokenService
	cfg    config.Auth
	log    *zap.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(store database.UserStore, tokens *TokenService, cfg config.Auth, log *zap.Logger) *AuthService {
	return &AuthService{store: store, tokens: tokens, cfg: cfg, log: log.Named("auth")}
}

// Register creates a client and its owner account and signs the owner in.
// The owner starts in status NEW until a subscription is activated.
func (s *AuthService) Register(ctx context.Context, req *user.RegisterRequest) (*user.AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	hash, err := HashPassword(req.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	u := &user.User{
		Email:        user.NormalizeEmail(req.Email),
		Name:         strings.TrimSpace(req.Name),
		Phone:        req.Phone,
		PasswordHash: hash,
		Role:         user.RoleClient,
		Status:       user.StatusNew,
		Permissions:  user.NewPermissionSet(),
	}
	company := strings.TrimSpace(req.CompanyName)
	if company == "" {
		company = u.Name
	}
	c := &user.Client{CompanyName: company}

	if err := s.store.CreateClientOwner(ctx, u, c); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("register: %w: email is already registered", domain.ErrConflict)
		}
		return nil, fmt.Errorf("register: %w", err)
	}
	s.log.Info("client registered", zap.String("user_id", u.ID), zap.String("client_id", c.ID))
	return s.signIn(ctx, u)
}

// Login checks the credentials and issues a new session token.
func (s *AuthService) Login(ctx context.Context, req *user.LoginRequest) (*user.AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	u, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}
	if !CheckPassword(u.PasswordHash, req.Password) {
		return nil, errBadCredentials
	}
	if !u.Status.CanAuthenticate() {
		return nil, fmt.Errorf("%w: account is %s", domain.ErrUnauthorized, strings.ToLower(string(u.Status)))
	}
	if u.ClientID != "" {
		c, err := s.store.GetClient(ctx, u.ClientID)
		if err != nil {
			return nil, fmt.Errorf("login: %w", err)
		}
		if c.Archived {
			return nil, fmt.Errorf("%w: company is archived", domain.ErrUnauthorized)
		}
	}
	return s.signIn(ctx, u)
}

func (s *AuthService) signIn(ctx context.Context, u *user.User) (*user.AuthResponse, error) {
	token, err := s.tokens.Issue(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &user.AuthResponse{Token: token, User: *u}, nil
}

// Logout revokes the token the caller authenticated with.
func (s *AuthService) Logout(ctx context.Context, id user.Identity) error {
	return s.tokens.Revoke(ctx, id.Token)
}

// LogoutAll revokes every token of the caller, including the current one.
func (s *AuthService) LogoutAll(ctx context.Context, id user.Identity) error {
	return s.tokens.RevokeAll(ctx, id.UserID)
}

// LogoutOthers revokes every token of the caller except the current one.
func (s *AuthService) LogoutOthers(ctx context.Context, id user.Identity) error {
	return s.tokens.RevokeAllExcept(ctx, id.UserID, id.Token)
}

// Me returns the caller's account and, for client users, the client record.
func (s *AuthService) Me(ctx context.Context, id user.Identity) (*Profile, error) {
	u, err := s.store.GetUser(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("me: %w", err)
	}
	p := &Profile{User: *u, Subscribed: id.Subscribed}
	if u.Role == user.RoleClient && u.ClientID != "" {
		c, err := s.store.GetClient(ctx, u.ClientID)
		if err != nil {
			return nil, fmt.Errorf("me: %w", err)
		}
		p.Client, p.Subscribed = c, c.Subscribed
	}
	return p, nil
}

// ChangePassword replaces the caller's password and revokes every session,
// including the current one.
func (s *AuthService) ChangePassword(ctx context.Context, id user.Identity, req *user.UpdatePasswordRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	u, err := s.store.GetUser(ctx, id.UserID)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if !CheckPassword(u.PasswordHash, req.OldPassword) {
		return fmt.Errorf("%w: old password is incorrect", domain.ErrUnauthorized)
	}
	if err := s.setPassword(ctx, u.ID, req.NewPassword); err != nil {
		return err
	}
	return s.tokens.RevokeAll(ctx, u.ID)
}

// ResetPassword sets a new password for the account with email and revokes
// every session. It is an operator action without an old-password check.
func (s *AuthService) ResetPassword(ctx context.Context, email, password string) error {
	if len(password) < 8 {
		return domain.Invalid("password must be at least 8 characters")
	}
	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if err := s.setPassword(ctx, u.ID, password); err != nil {
		return err
	}
	return s.tokens.RevokeAll(ctx, u.ID)
}

func (s *AuthService) setPassword(ctx context.Context, userID, password string) error {
	hash, err := HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// EnsureSuperAdmin creates the platform administrator unless an account with
// that email exists. created reports whether a user was inserted.
func (s *AuthService) EnsureSuperAdmin(ctx context.Context, email, password string) (created bool, err error) {
	if email == "" || password == "" {
		return false, nil
	}
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return false, fmt.Errorf("lookup superadmin: %w", err)
	}

	hash, err := HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return false, err
	}
	u := &user.User{
		Email:        user.NormalizeEmail(email),
		Name:         "Super Admin",
		PasswordHash: hash,
		Role:         user.RoleSuperAdmin,
		Status:       user.StatusActive,
		Permissions:  user.NewPermissionSet(),
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return false, nil
		}
		return false, fmt.Errorf("create superadmin: %w", err)
	}
	s.log.Info("superadmin created", zap.String("email", u.Email))
	return true, nil
}
