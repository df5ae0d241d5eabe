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

// StaffService lets a client owner manage its staff and tenant accounts.
type StaffService struct {
	store  database.Store
	tokens *TokenService
	cfg    config.Auth
	log    *zap.Logger
}

// NewStaffService creates a staff service.
func NewStaffService(store database.Store, tokens *TokenService, cfg config.Auth, log *zap.Logger) *StaffService {
	return &StaffService{store: store, tokens: tokens, cfg: cfg, log: log.Named("staff")}
}

// CreateStaff adds an ACTIVE manager, maintainer or janitor to the caller's client.
func (s *StaffService) CreateStaff(ctx context.Context, actor user.Identity, req *user.CreateStaffRequest) (*user.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	perms, _ := user.ParsePermissions(req.Permissions)
	props, err := s.resolveProperties(ctx, req.Properties)
	if err != nil {
		return nil, fmt.Errorf("create staff: %w", err)
	}
	u := &user.User{
		Email:       user.NormalizeEmail(req.Email),
		Name:        strings.TrimSpace(req.Name),
		Phone:       req.Phone,
		Role:        req.Role,
		Status:      user.StatusActive,
		Permissions: perms,
		ClientID:    actor.ClientID,
		PropertyIDs: props,
	}
	if err := s.create(ctx, u, req.Password); err != nil {
		return nil, err
	}
	s.log.Info("staff created", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

// CreateTenant adds an ACTIVE tenant account to the caller's client.
func (s *StaffService) CreateTenant(ctx context.Context, actor user.Identity, req *user.CreateTenantRequest) (*user.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	u := &user.User{
		Email:       user.NormalizeEmail(req.Email),
		Name:        strings.TrimSpace(req.Name),
		Phone:       req.Phone,
		Role:        user.RoleTenant,
		Status:      user.StatusActive,
		Permissions: user.NewPermissionSet(),
		ClientID:    actor.ClientID,
	}
	if err := s.create(ctx, u, req.Password); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *StaffService) create(ctx context.Context, u *user.User, password string) error {
	hash, err := HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return fmt.Errorf("create user: %w: email is already registered", domain.ErrConflict)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// ListStaff returns the client's managers, maintainers and janitors.
func (s *StaffService) ListStaff(ctx context.Context, page domain.PageRequest) (domain.Page[user.User], error) {
	return s.list(ctx, []user.Role{user.RoleManager, user.RoleMaintainer, user.RoleJanitor}, page)
}

// ListTenants returns the client's tenants.
func (s *StaffService) ListTenants(ctx context.Context, page domain.PageRequest) (domain.Page[user.User], error) {
	return s.list(ctx, []user.Role{user.RoleTenant}, page)
}

func (s *StaffService) list(ctx context.Context, roles []user.Role, page domain.PageRequest) (domain.Page[user.User], error) {
	items, total, err := s.store.ListUsers(ctx, roles, page)
	if err != nil {
		return domain.Page[user.User]{}, fmt.Errorf("list users: %w", err)
	}
	return domain.NewPage(items, page, total), nil
}

// SetProperties replaces a staff member's property assignments.
func (s *StaffService) SetProperties(ctx context.Context, userID string, req *user.SetPropertiesRequest) error {
	u, err := s.target(ctx, userID)
	if err != nil {
		return err
	}
	props, err := s.resolveProperties(ctx, req.Properties)
	if err != nil {
		return fmt.Errorf("set properties: %w", err)
	}
	if err := s.store.SetStaffProperties(ctx, u.ID, props); err != nil {
		return fmt.Errorf("set properties: %w", err)
	}
	s.tokens.Invalidate(ctx, u.ID)
	return nil
}

// SetPermissions replaces a staff member's permission set.
func (s *StaffService) SetPermissions(ctx context.Context, userID string, req *user.SetPermissionsRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	u, err := s.target(ctx, userID)
	if err != nil {
		return err
	}
	if !u.Role.IsStaff() {
		return domain.Invalid("user is not a staff member")
	}
	perms, _ := user.ParsePermissions(req.Permissions)
	if err := s.store.UpdatePermissions(ctx, u.ID, perms); err != nil {
		return fmt.Errorf("set permissions: %w", err)
	}
	s.tokens.Invalidate(ctx, u.ID)
	return nil
}

// SetStatus activates or deactivates an account. Deactivation ends every
// session of the user.
func (s *StaffService) SetStatus(ctx context.Context, userID string, req *user.SetStatusRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	u, err := s.target(ctx, userID)
	if err != nil {
		return err
	}
	return s.setStatus(ctx, u, req.Status)
}

// Delete soft-deletes an account and ends its sessions.
func (s *StaffService) Delete(ctx context.Context, userID string) error {
	u, err := s.target(ctx, userID)
	if err != nil {
		return err
	}
	return s.setStatus(ctx, u, user.StatusDeleted)
}

func (s *StaffService) setStatus(ctx context.Context, u *user.User, status user.Status) error {
	if err := s.store.UpdateUserStatus(ctx, u.ID, status); err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	s.tokens.Invalidate(ctx, u.ID)
	if !status.CanAuthenticate() {
		if err := s.tokens.RevokeAll(ctx, u.ID); err != nil {
			return fmt.Errorf("set status: %w", err)
		}
	}
	s.log.Info("user status changed", zap.String("user_id", u.ID), zap.String("status", string(status)))
	return nil
}

// target loads a staff member or tenant of the caller's client.
func (s *StaffService) target(ctx context.Context, userID string) (*user.User, error) {
	u, err := s.store.GetUserByExternalID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.Role.IsStaff() && u.Role != user.RoleTenant {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	return u, nil
}

func (s *StaffService) resolveProperties(ctx context.Context, externalIDs []string) ([]string, error) {
	if len(externalIDs) == 0 {
		return nil, nil
	}
	return s.store.ResolvePropertyIDs(ctx, externalIDs)
}
