package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Strob0t/PropertyHub/internal/adapter/otel"
	"github.com/Strob0t/PropertyHub/internal/config"
	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/user"
	"github.com/Strob0t/PropertyHub/internal/logger"
	"github.com/Strob0t/PropertyHub/internal/port/cache"
	"github.com/Strob0t/PropertyHub/internal/port/database"
	"github.com/Strob0t/PropertyHub/internal/port/messagequeue"
	"github.com/Strob0t/PropertyHub/internal/port/tokenstore"
)

// ErrTokenExpired is returned by Verify for a well-signed token past its expiry.
var ErrTokenExpired = fmt.Errorf("%w: token expired", domain.ErrUnauthorized)

var errNotAuthorized = fmt.Errorf("%w: you are not authorized", domain.ErrUnauthorized)

// SnapshotCache is the read-through cache holding user snapshots.
type SnapshotCache interface {
	GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Publisher publishes messages to other instances.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// tokenClaims is the payload of a session token. Subject carries the
// internal user id and ID a random jti so two tokens issued in the same
// second differ.
type tokenClaims struct {
	UID         string      `json:"uid"`
	Role        user.Role   `json:"role"`
	Client      string      `json:"client,omitempty"`
	Permissions []string    `json:"permissions,omitempty"`
	Status      user.Status `json:"status"`
	jwt.RegisteredClaims
}

// userSnapshot is the cached part of a user record needed to build an Identity.
type userSnapshot struct {
	ID          string      `json:"id"`
	ExternalID  string      `json:"external_id"`
	Email       string      `json:"email"`
	Name        string      `json:"name"`
	Role        user.Role   `json:"role"`
	Status      user.Status `json:"status"`
	ClientID    string      `json:"client_id,omitempty"`
	Permissions []string    `json:"permissions,omitempty"`
	PropertyIDs []string    `json:"property_ids,omitempty"`
	Subscribed  bool        `json:"subscribed"`
}

func (s *userSnapshot) user() *user.User {
	perms, _ := user.ParsePermissions(s.Permissions)
	return &user.User{
		ID:          s.ID,
		ExternalID:  s.ExternalID,
		Email:       s.Email,
		Name:        s.Name,
		Role:        s.Role,
		Status:      s.Status,
		ClientID:    s.ClientID,
		Permissions: perms,
		PropertyIDs: s.PropertyIDs,
	}
}

// TokenService issues, verifies and revokes session tokens. A token is
// accepted only while its signature and expiry are valid, it has a live
// record in the liveness store, and its user may still authenticate.
type TokenService struct {
	users   database.UserStore
	ring    database.TokenRingStore
	live    tokenstore.LivenessStore
	cache   SnapshotCache
	pub     Publisher
	cfg     config.Auth
	secret  []byte
	metrics *otel.Metrics
	log     *zap.Logger
	now     func() time.Time

	snapshotTTL time.Duration
}

// NewTokenService creates a token service. pub and metrics may be nil.
func NewTokenService(
	store database.Store,
	live tokenstore.LivenessStore,
	snapshots SnapshotCache,
	pub Publisher,
	cfg config.Auth,
	metrics *otel.Metrics,
	log *zap.Logger,
) *TokenService {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = user.MaxActiveTokens
	}
	return &TokenService{
		users:   store,
		ring:    store,
		live:    live,
		cache:   snapshots,
		pub:     pub,
		cfg:     cfg,
		secret:  []byte(cfg.JWTSecret),
		metrics: metrics,
		log:     log.Named("tokens"),
		now:     time.Now,

		snapshotTTL: 5 * time.Minute,
	}
}

// Issue signs a new token for u, marks it live and appends it to the user's
// ring. Tokens pushed out of the ring are revoked.
func (s *TokenService) Issue(ctx context.Context, u *user.User) (string, error) {
	now := s.now()
	claims := tokenClaims{
		UID:         u.ExternalID,
		Role:        u.Role,
		Client:      u.ClientID,
		Permissions: u.Permissions.Strings(),
		Status:      u.Status,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	// Live before ring: once Issue returns, every live token is in the ring
	// and reachable by RevokeAll.
	if err := s.live.MarkLive(ctx, token, u.ID, s.cfg.TokenTTL); err != nil {
		return "", fmt.Errorf("mark token live: %w", err)
	}
	evicted, err := s.ring.PushToken(ctx, u.ID, token, s.cfg.MaxTokens)
	if err != nil {
		if rmErr := s.live.Revoke(ctx, token); rmErr != nil {
			s.log.Warn("drop live record of unpushed token", zap.String("user_id", u.ID), zap.Error(rmErr))
		}
		return "", fmt.Errorf("push token: %w", err)
	}
	if len(evicted) > 0 {
		s.dropLive(ctx, u.ID, evicted)
	}
	s.metrics.TokenIssued(ctx)
	return token, nil
}

// Verify resolves token into the caller's identity. Every failure yields an
// error wrapping domain.ErrUnauthorized; an expired token yields ErrTokenExpired.
func (s *TokenService) Verify(ctx context.Context, token string) (user.Identity, error) {
	ctx, span := otel.StartVerifySpan(ctx)
	defer span.End()
	start := s.now()

	id, err := s.verify(ctx, token)
	s.metrics.ObserveVerify(ctx, s.now().Sub(start).Seconds(), err == nil)
	if err != nil {
		span.RecordError(err)
		return user.Identity{}, err
	}
	return id, nil
}

func (s *TokenService) verify(ctx context.Context, token string) (user.Identity, error) {
	if token == "" {
		return user.Identity{}, errNotAuthorized
	}
	claims, err := s.parse(token, true)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return user.Identity{}, ErrTokenExpired
		}
		return user.Identity{}, errNotAuthorized
	}

	liveUser, err := s.live.LiveUser(ctx, token)
	if err != nil {
		if !errors.Is(err, tokenstore.ErrNotLive) {
			logger.FromContext(ctx, s.log).Warn("liveness lookup failed", zap.Error(err))
		}
		return user.Identity{}, errNotAuthorized
	}
	if liveUser != claims.Subject {
		return user.Identity{}, errNotAuthorized
	}

	snap, err := s.snapshot(ctx, claims.Subject)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.FromContext(ctx, s.log).Warn("load user snapshot", zap.Error(err))
		}
		return user.Identity{}, errNotAuthorized
	}
	if !snap.Status.CanAuthenticate() {
		return user.Identity{}, errNotAuthorized
	}
	return user.IdentityFromUser(snap.user(), snap.Subscribed, token), nil
}

// snapshot loads the user through the cache.
func (s *TokenService) snapshot(ctx context.Context, userID string) (*userSnapshot, error) {
	raw, err := s.cache.GetOrLoad(ctx, cache.UserKey(userID), s.snapshotTTL, func(ctx context.Context) ([]byte, error) {
		u, err := s.users.GetUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		snap := userSnapshot{
			ID:          u.ID,
			ExternalID:  u.ExternalID,
			Email:       u.Email,
			Name:        u.Name,
			Role:        u.Role,
			Status:      u.Status,
			ClientID:    u.ClientID,
			Permissions: u.Permissions.Strings(),
			PropertyIDs: u.PropertyIDs,
		}
		if u.ClientID != "" {
			c, err := s.users.GetClient(ctx, u.ClientID)
			if err != nil {
				return nil, err
			}
			snap.Subscribed = c.Subscribed
		}
		return json.Marshal(snap)
	})
	if err != nil {
		return nil, err
	}
	var snap userSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode user snapshot: %w", err)
	}
	return &snap, nil
}

// SetSnapshotTTL sets how long user snapshots stay cached.
func (s *TokenService) SetSnapshotTTL(d time.Duration) {
	if d > 0 {
		s.snapshotTTL = d
	}
}

// Invalidate drops the cached snapshot of a user. Callers changing a user's
// status, role scope or client subscription call it after the write.
func (s *TokenService) Invalidate(ctx context.Context, userID string) {
	if err := s.cache.Delete(ctx, cache.UserKey(userID)); err != nil {
		logger.FromContext(ctx, s.log).Warn("invalidate user snapshot", zap.String("user_id", userID), zap.Error(err))
	}
}

// Revoke invalidates a single token. Expired tokens are accepted so the
// ring can be cleaned up after expiry.
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	claims, err := s.parse(token, false)
	if err != nil {
		return errNotAuthorized
	}
	if err := s.ring.RemoveTokens(ctx, claims.Subject, token); err != nil {
		return fmt.Errorf("remove token: %w", err)
	}
	s.dropLive(ctx, claims.Subject, []string{token})
	return nil
}

// RevokeAll invalidates every token of a user.
func (s *TokenService) RevokeAll(ctx context.Context, userID string) error {
	return s.RevokeAllExcept(ctx, userID, "")
}

// RevokeAllExcept invalidates every token of a user except keep.
func (s *TokenService) RevokeAllExcept(ctx context.Context, userID, keep string) error {
	removed, err := s.ring.RetainToken(ctx, userID, keep)
	if err != nil {
		return fmt.Errorf("retain token: %w", err)
	}
	if len(removed) > 0 {
		s.dropLive(ctx, userID, removed)
	}
	return nil
}

// PruneExpired removes tokens that no longer verify from every user's ring.
func (s *TokenService) PruneExpired(ctx context.Context) (int, error) {
	n, err := s.ring.PruneTokens(ctx, func(token string) bool {
		_, err := s.parse(token, true)
		return err == nil
	})
	if err != nil {
		return 0, fmt.Errorf("prune tokens: %w", err)
	}
	if n > 0 {
		s.log.Info("pruned expired tokens", zap.Int("count", n))
	}
	return n, nil
}

// dropLive deletes live records and tells every instance to close sockets
// bound to the tokens. The ring has already been updated, so failures here
// are logged rather than returned.
func (s *TokenService) dropLive(ctx context.Context, userID string, tokens []string) {
	log := logger.FromContext(ctx, s.log)
	if err := s.live.Revoke(ctx, tokens...); err != nil {
		log.Error("delete live records", zap.String("user_id", userID), zap.Error(err))
	}
	s.metrics.TokenRevoked(ctx, len(tokens))
	if s.pub == nil {
		return
	}
	data, err := json.Marshal(messagequeue.SessionsRevokedPayload{UserID: userID, Tokens: tokens})
	if err != nil {
		log.Error("encode revocation", zap.Error(err))
		return
	}
	if err := s.pub.Publish(ctx, messagequeue.SubjectSessionsRevoked, data); err != nil {
		log.Warn("publish revocation", zap.String("user_id", userID), zap.Error(err))
	}
}

// parse checks the signature and, when validate is set, the expiry.
func (s *TokenService) parse(token string, validate bool) (*tokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if !validate {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return &claims, nil
}
