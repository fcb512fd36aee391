package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xelth-com/centerhub/internal/models"
	"github.com/xelth-com/centerhub/internal/store"
	"go.uber.org/zap"
)

var (
	// ErrInvalidCredentials is returned for a wrong email or password
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned for a token that fails signature or expiry checks
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenRevoked is returned for a well-formed token that is no longer registered
	ErrTokenRevoked = errors.New("token revoked")
)

// SessionBinder opens and closes the center session tied to a login.
// session.Manager implements it.
type SessionBinder interface {
	EnsureActive(ctx context.Context, actor Principal) (*models.CenterSession, error)
	End(ctx context.Context, actor Principal, sessionID string) (*models.CenterSession, error)
}

// LoginResult is returned by a successful login
type LoginResult struct {
	Token     string                `json:"token"`
	ExpiresAt time.Time             `json:"expiresAt"`
	Principal Principal             `json:"user"`
	Session   *models.CenterSession `json:"session,omitempty"`
}

// Options tune the Service
type Options struct {
	AdminPasswordHash  string
	TokenTTL           time.Duration
	RevalidateInterval time.Duration
	Now                func() time.Time
}

// Service authenticates centers and the administrator
type Service struct {
	centers  store.CenterStore
	sessions store.SessionStore
	binder   SessionBinder
	issuer   *TokenIssuer
	registry *TokenRegistry
	opts     Options
	log      *zap.Logger
}

// NewService wires the auth service
func NewService(centers store.CenterStore, sessions store.SessionStore, binder SessionBinder,
	issuer *TokenIssuer, registry *TokenRegistry, opts Options, log *zap.Logger) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	return &Service{
		centers:  centers,
		sessions: sessions,
		binder:   binder,
		issuer:   issuer,
		registry: registry,
		opts:     opts,
		log:      log,
	}
}

// LoginCenter checks a center's credentials, binds the login to the center's
// active session and issues a registered token. centerID may be empty, in which
// case the center is found by email.
func (s *Service) LoginCenter(ctx context.Context, centerID, email, password string) (*LoginResult, error) {
	var (
		center *models.Center
		err    error
	)
	if centerID != "" {
		center, err = s.centers.GetCenter(ctx, centerID)
	} else {
		center, err = s.centers.GetCenterByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !strings.EqualFold(center.Email, strings.TrimSpace(email)) || !CheckPasswordHash(password, center.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	p := Principal{
		Role:       RoleCenter,
		UserID:     center.ID,
		Name:       center.ManagerName,
		Email:      center.Email,
		CenterID:   center.ID,
		CenterName: center.Name,
		TokenID:    uuid.NewString(),
	}

	sess, err := s.binder.EnsureActive(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("open session for %s: %w", center.ID, err)
	}
	p.SessionID = sess.ID

	res, err := s.issue(ctx, p)
	if err != nil {
		return nil, err
	}
	res.Session = sess
	s.log.Info("center login", zap.String("center_id", center.ID), zap.String("session_id", sess.ID))
	return res, nil
}

// LoginAdmin checks the administrator password
func (s *Service) LoginAdmin(ctx context.Context, password string) (*LoginResult, error) {
	if s.opts.AdminPasswordHash == "" || !CheckPasswordHash(password, s.opts.AdminPasswordHash) {
		return nil, ErrInvalidCredentials
	}
	p := Principal{
		Role:    RoleAdmin,
		UserID:  "admin",
		Name:    "admin",
		TokenID: uuid.NewString(),
	}
	res, err := s.issue(ctx, p)
	if err != nil {
		return nil, err
	}
	s.log.Info("admin login")
	return res, nil
}

func (s *Service) issue(ctx context.Context, p Principal) (*LoginResult, error) {
	now := s.opts.Now()
	exp := now.Add(s.opts.TokenTTL)

	token, err := s.issuer.Issue(p, exp)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	err = s.registry.Put(ctx, SessionToken{
		TokenID:    p.TokenID,
		Role:       p.Role,
		CenterID:   p.CenterID,
		CenterName: p.CenterName,
		SessionID:  p.SessionID,
		IssuedAt:   now,
		ExpiresAt:  exp,
		CheckedAt:  now,
	})
	if err != nil {
		return nil, fmt.Errorf("register token: %w", err)
	}
	return &LoginResult{Token: token, ExpiresAt: exp, Principal: p}, nil
}

// Logout revokes p's token and ends the center session bound to it
func (s *Service) Logout(ctx context.Context, p Principal) error {
	if err := s.registry.Revoke(ctx, p.TokenID); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	if p.Role != RoleCenter || p.SessionID == "" {
		return nil
	}
	_, err := s.binder.End(ctx, p, p.SessionID)
	if err != nil && !errors.Is(err, store.ErrSessionNotOpen) && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("end session %s: %w", p.SessionID, err)
	}
	return nil
}

// Validate resolves a bearer token to its principal. Center tokens are checked
// against the session store every RevalidateInterval; a token whose session was
// closed elsewhere (admin, sweep) is revoked.
func (s *Service) Validate(ctx context.Context, token string) (Principal, error) {
	p, err := s.issuer.Parse(token)
	if err != nil {
		return Principal{}, err
	}

	tok, err := s.registry.Get(ctx, p.TokenID)
	if err != nil {
		return Principal{}, err
	}

	now := s.opts.Now()
	if !now.Before(tok.ExpiresAt) {
		_ = s.registry.Revoke(ctx, tok.TokenID)
		return Principal{}, ErrTokenRevoked
	}

	if tok.Role == RoleCenter && s.opts.RevalidateInterval > 0 && now.Sub(tok.CheckedAt) >= s.opts.RevalidateInterval {
		active, err := s.sessions.ActiveSession(ctx, tok.CenterID)
		if err != nil {
			return Principal{}, fmt.Errorf("revalidate session: %w", err)
		}
		if active == nil || active.ID != tok.SessionID {
			s.log.Info("revoking token bound to closed session",
				zap.String("center_id", tok.CenterID),
				zap.String("session_id", tok.SessionID))
			_ = s.registry.Revoke(ctx, tok.TokenID)
			return Principal{}, ErrTokenRevoked
		}
		tok.CheckedAt = now
		if err := s.registry.Put(ctx, *tok); err != nil {
			s.log.Warn("failed to refresh token check time", zap.Error(err))
		}
	}

	p.SessionID = tok.SessionID
	return p, nil
}
