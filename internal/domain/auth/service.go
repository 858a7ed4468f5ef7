package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"tally/internal/core/apperror"
	appctx "tally/internal/core/context"
	"tally/internal/core/id"
	"tally/internal/core/tx"
	"tally/internal/domain/audit"
	"tally/pkg/logger"
)

const (
	maxFailedLoginAttempts = 5
	accountLockDuration    = 15 * time.Minute
	minPasswordLength      = 8
)

// Service provides authentication operations.
type Service struct {
	users       UserRepository
	roles       RoleRepository
	permissions PermissionRepository
	tokens      TokenRepository
	jwt         *JWTService
	txManager   tx.Manager
	audit       *audit.Service
}

// NewService creates an auth service.
func NewService(
	users UserRepository,
	roles RoleRepository,
	permissions PermissionRepository,
	tokens TokenRepository,
	jwtService *JWTService,
	txManager tx.Manager,
	auditService *audit.Service,
) *Service {
	return &Service{
		users:       users,
		roles:       roles,
		permissions: permissions,
		tokens:      tokens,
		jwt:         jwtService,
		txManager:   txManager,
		audit:       auditService,
	}
}

// Register creates a new user account.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, apperror.NewValidation("email is required").WithDetail("field", "email")
	}
	if len(req.Password) < minPasswordLength {
		return nil, apperror.NewValidation("password too short").
			WithDetail("field", "password").
			WithDetail("minLength", minPasswordLength)
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperror.NewDuplicate("user", "email", email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	user := NewUser(email, string(hash))
	user.FirstName = req.FirstName
	user.LastName = req.LastName

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	logger.Info(ctx, "user registered", "user_id", user.ID.String(), "email", email)
	return user, nil
}

// Login authenticates a user and issues a token pair.
func (s *Service) Login(ctx context.Context, creds Credentials) (*TokenPair, *User, error) {
	email := normalizeEmail(creds.Email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperror.IsNotFound(err) {
			s.recordLoginAttempt(ctx, nil, email, false, "unknown email")
			// Same error as a wrong password so the response does not
			// reveal whether the account exists.
			return nil, nil, apperror.NewUnauthorized("invalid credentials")
		}
		return nil, nil, err
	}

	if err := user.CanLogin(); err != nil {
		reason := "account disabled"
		if user.IsLocked() {
			reason = "account locked"
		}
		s.recordLoginAttempt(ctx, userIDPtr(user), email, false, reason)
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		user.RecordFailedLogin(maxFailedLoginAttempts, accountLockDuration)
		if updErr := s.users.Update(ctx, user); updErr != nil {
			logger.Warn(ctx, "failed to persist login attempt counter",
				"user_id", user.ID.String(), "error", updErr)
		}
		s.recordLoginAttempt(ctx, userIDPtr(user), email, false, "wrong password")
		return nil, nil, apperror.NewUnauthorized("invalid credentials")
	}

	user.RecordSuccessfulLogin()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, nil, err
	}
	if err := s.users.LoadRoles(ctx, user); err != nil {
		return nil, nil, err
	}

	pair, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.recordLoginAttempt(ctx, userIDPtr(user), email, true, "")
	logger.Info(ctx, "user logged in", "user_id", user.ID.String())
	return pair, user, nil
}

// RefreshToken exchanges a valid refresh token for a new token pair.
// The old token is revoked: each refresh token is single use.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	stored, err := s.tokens.GetByHash(ctx, hashToken(refreshToken))
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewUnauthorized("invalid refresh token")
		}
		return nil, err
	}
	if !stored.IsValid() {
		return nil, apperror.NewUnauthorized("refresh token expired or revoked")
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, apperror.NewUnauthorized("invalid refresh token")
	}
	if err := user.CanLogin(); err != nil {
		return nil, err
	}
	if err := s.users.LoadRoles(ctx, user); err != nil {
		return nil, err
	}

	var pair *TokenPair
	err = s.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		if err := s.tokens.Revoke(txCtx, stored.ID, "rotated"); err != nil {
			return err
		}
		pair, err = s.generateTokenPair(txCtx, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout revokes the given refresh token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	stored, err := s.tokens.GetByHash(ctx, hashToken(refreshToken))
	if err != nil {
		if apperror.IsNotFound(err) {
			// Already gone, logout is idempotent.
			return nil
		}
		return err
	}
	return s.tokens.Revoke(ctx, stored.ID, "logout")
}

// LogoutAll revokes every refresh token of the user.
func (s *Service) LogoutAll(ctx context.Context, userID id.ID) error {
	return s.tokens.RevokeAllForUser(ctx, userID, "logout all sessions")
}

// ValidateAccessToken checks an access token and returns the user context.
func (s *Service) ValidateAccessToken(tokenString string) (*appctx.UserContext, error) {
	return s.jwt.ValidateToken(tokenString)
}

// ChangePassword updates the user's password after verifying the old one.
// All refresh tokens are revoked so other sessions must log in again.
func (s *Service) ChangePassword(ctx context.Context, userID id.ID, oldPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return apperror.NewValidation("password too short").
			WithDetail("field", "newPassword").
			WithDetail("minLength", minPasswordLength)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return apperror.NewUnauthorized("current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperror.NewInternal(err)
	}
	user.PasswordHash = string(hash)

	return s.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		if err := s.users.Update(txCtx, user); err != nil {
			return err
		}
		return s.tokens.RevokeAllForUser(txCtx, userID, "password changed")
	})
}

// GetUserByID returns a user with roles loaded.
func (s *Service) GetUserByID(ctx context.Context, userID id.ID) (*User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.users.LoadRoles(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers returns users matching the filter.
func (s *Service) ListUsers(ctx context.Context, filter UserFilter) ([]*User, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.users.List(ctx, filter)
}

// SetUserActive enables or disables a user account.
func (s *Service) SetUserActive(ctx context.Context, userID id.ID, active bool) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	user.IsActive = active

	return s.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		if err := s.users.Update(txCtx, user); err != nil {
			return err
		}
		if !active {
			return s.tokens.RevokeAllForUser(txCtx, userID, "account disabled")
		}
		return nil
	})
}

// AssignRole gives a role to a user.
func (s *Service) AssignRole(ctx context.Context, userID id.ID, roleCode string) error {
	role, err := s.roles.GetByCode(ctx, roleCode)
	if err != nil {
		return err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}
	return s.roles.AssignToUser(ctx, userID, role.ID)
}

// RevokeRole removes a role from a user.
func (s *Service) RevokeRole(ctx context.Context, userID id.ID, roleCode string) error {
	role, err := s.roles.GetByCode(ctx, roleCode)
	if err != nil {
		return err
	}
	return s.roles.RevokeFromUser(ctx, userID, role.ID)
}

// ListRoles returns all roles with permissions loaded.
func (s *Service) ListRoles(ctx context.Context) ([]*Role, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, role := range roles {
		if err := s.roles.LoadPermissions(ctx, role); err != nil {
			return nil, err
		}
	}
	return roles, nil
}

// ListPermissions returns all permissions.
func (s *Service) ListPermissions(ctx context.Context) ([]*Permission, error) {
	return s.permissions.List(ctx)
}

// CreateRole creates a non-system role.
func (s *Service) CreateRole(ctx context.Context, code, name, description string) (*Role, error) {
	if code == "" || name == "" {
		return nil, apperror.NewValidation("role code and name are required")
	}
	if existing, err := s.roles.GetByCode(ctx, code); err == nil && existing != nil {
		return nil, apperror.NewDuplicate("role", "code", code)
	} else if err != nil && !apperror.IsNotFound(err) {
		return nil, err
	}

	role := NewRole(code, name)
	role.Description = description
	if err := s.roles.Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// CleanupExpiredTokens removes expired refresh tokens, for periodic jobs.
func (s *Service) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	return s.tokens.DeleteExpired(ctx)
}

func (s *Service) generateTokenPair(ctx context.Context, user *User) (*TokenPair, error) {
	sessionID := id.New().String()

	accessToken, expiresAt, err := s.jwt.GenerateAccessToken(user, sessionID)
	if err != nil {
		return nil, err
	}

	refreshToken, err := generateRandomToken()
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	meta := appctx.GetRequestMetadata(ctx)
	stored := &RefreshToken{
		ID:        id.New(),
		UserID:    user.ID,
		TokenHash: hashToken(refreshToken),
		ExpiresAt: time.Now().Add(s.jwt.RefreshTokenTTL()),
		CreatedAt: time.Now(),
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	}
	if err := s.tokens.Save(ctx, stored); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		TokenType:    "Bearer",
	}, nil
}

func (s *Service) recordLoginAttempt(ctx context.Context, userID *string, email string, success bool, reason string) {
	if s.audit == nil {
		return
	}
	var failure *string
	if !success {
		failure = &reason
	}
	s.audit.RecordLogin(ctx, userID, email, success, failure)
}

func userIDPtr(user *User) *string {
	v := user.ID.String()
	return &v
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// hashToken hashes a refresh token for storage. Only the hash is stored,
// the raw token never touches the database.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateRandomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
