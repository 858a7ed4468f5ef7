package auth

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"tally/internal/core/apperror"
	"tally/internal/core/id"
)

// --- Fakes ---

type noopTxManager struct{}

func (noopTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeUserRepo struct {
	users map[id.ID]*User
}

func newFakeUserRepo(items ...*User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[id.ID]*User)}
	for _, u := range items {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(ctx context.Context, user *User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, userID id.ID) (*User, error) {
	u, ok := r.users[userID]
	if !ok {
		return nil, apperror.NewNotFound("user", userID.String())
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperror.NewNotFound("user", email)
}

func (r *fakeUserRepo) Update(ctx context.Context, user *User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, userID id.ID) error {
	delete(r.users, userID)
	return nil
}

func (r *fakeUserRepo) List(ctx context.Context, filter UserFilter) ([]*User, error) {
	var out []*User
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *fakeUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	return err == nil, nil
}

func (r *fakeUserRepo) LoadRoles(ctx context.Context, user *User) error { return nil }

var _ UserRepository = (*fakeUserRepo)(nil)

type fakeTokenRepo struct {
	tokens map[string]*RefreshToken // by hash
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*RefreshToken)}
}

func (r *fakeTokenRepo) Save(ctx context.Context, token *RefreshToken) error {
	r.tokens[token.TokenHash] = token
	return nil
}

func (r *fakeTokenRepo) GetByHash(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	t, ok := r.tokens[tokenHash]
	if !ok {
		return nil, apperror.NewNotFound("refresh_token", tokenHash)
	}
	return t, nil
}

func (r *fakeTokenRepo) Revoke(ctx context.Context, tokenID id.ID, reason string) error {
	for _, t := range r.tokens {
		if t.ID == tokenID {
			now := time.Now()
			t.RevokedAt = &now
			t.RevokedReason = reason
			return nil
		}
	}
	return apperror.NewNotFound("refresh_token", tokenID.String())
}

func (r *fakeTokenRepo) RevokeAllForUser(ctx context.Context, userID id.ID, reason string) error {
	now := time.Now()
	for _, t := range r.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
			t.RevokedReason = reason
		}
	}
	return nil
}

func (r *fakeTokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	var n int64
	for h, t := range r.tokens {
		if time.Now().After(t.ExpiresAt) {
			delete(r.tokens, h)
			n++
		}
	}
	return n, nil
}

func (r *fakeTokenRepo) activeCount(userID id.ID) int {
	n := 0
	for _, t := range r.tokens {
		if t.UserID == userID && t.IsValid() {
			n++
		}
	}
	return n
}

var _ TokenRepository = (*fakeTokenRepo)(nil)

type fakeRoleRepo struct {
	roles       map[string]*Role // by code
	assignments map[id.ID][]id.ID
}

func newFakeRoleRepo(items ...*Role) *fakeRoleRepo {
	r := &fakeRoleRepo{
		roles:       make(map[string]*Role),
		assignments: make(map[id.ID][]id.ID),
	}
	for _, role := range items {
		r.roles[role.Code] = role
	}
	return r
}

func (r *fakeRoleRepo) Create(ctx context.Context, role *Role) error {
	r.roles[role.Code] = role
	return nil
}

func (r *fakeRoleRepo) GetByID(ctx context.Context, roleID id.ID) (*Role, error) {
	for _, role := range r.roles {
		if role.ID == roleID {
			return role, nil
		}
	}
	return nil, apperror.NewNotFound("role", roleID.String())
}

func (r *fakeRoleRepo) GetByCode(ctx context.Context, code string) (*Role, error) {
	role, ok := r.roles[code]
	if !ok {
		return nil, apperror.NewNotFound("role", code)
	}
	return role, nil
}

func (r *fakeRoleRepo) Update(ctx context.Context, role *Role) error { return nil }

func (r *fakeRoleRepo) Delete(ctx context.Context, roleID id.ID) error { return nil }

func (r *fakeRoleRepo) List(ctx context.Context) ([]*Role, error) {
	var out []*Role
	for _, role := range r.roles {
		out = append(out, role)
	}
	return out, nil
}

func (r *fakeRoleRepo) AssignToUser(ctx context.Context, userID, roleID id.ID) error {
	r.assignments[userID] = append(r.assignments[userID], roleID)
	return nil
}

func (r *fakeRoleRepo) RevokeFromUser(ctx context.Context, userID, roleID id.ID) error {
	return nil
}

func (r *fakeRoleRepo) LoadPermissions(ctx context.Context, role *Role) error { return nil }

var _ RoleRepository = (*fakeRoleRepo)(nil)

type fakePermissionRepo struct{}

func (fakePermissionRepo) List(ctx context.Context) ([]*Permission, error) { return nil, nil }

func (fakePermissionRepo) GetByCode(ctx context.Context, code string) (*Permission, error) {
	return nil, apperror.NewNotFound("permission", code)
}

func (fakePermissionRepo) AssignToRole(ctx context.Context, roleID, permissionID id.ID) error {
	return nil
}

func (fakePermissionRepo) RevokeFromRole(ctx context.Context, roleID, permissionID id.ID) error {
	return nil
}

var _ PermissionRepository = fakePermissionRepo{}

// --- Helpers ---

const testPassword = "correct horse battery staple"

func testUser(email string) *User {
	// MinCost keeps the hashing fast in tests.
	hash, _ := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	return NewUser(email, string(hash))
}

func newTestService(users *fakeUserRepo, tokens *fakeTokenRepo, roles *fakeRoleRepo) *Service {
	if roles == nil {
		roles = newFakeRoleRepo()
	}
	jwtService := NewJWTService(DefaultJWTConfig("test-secret-at-least-32-bytes-long"))
	return NewService(users, roles, fakePermissionRepo{}, tokens, jwtService, noopTxManager{}, nil)
}

// --- Tests ---

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	u := testUser("alice@example.com")
	tokens := newFakeTokenRepo()
	svc := newTestService(newFakeUserRepo(u), tokens, nil)

	pair, user, err := svc.Login(ctx, Credentials{Email: "Alice@Example.com ", Password: testPassword})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.ID != u.ID {
		t.Error("wrong user returned")
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Error("token pair must be populated")
	}
	if pair.TokenType != "Bearer" {
		t.Errorf("TokenType = %q", pair.TokenType)
	}
	if u.LastLoginAt == nil {
		t.Error("successful login must stamp LastLoginAt")
	}

	// The issued access token round-trips through validation.
	uc, err := svc.ValidateAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if uc.UserID != u.ID.String() {
		t.Errorf("claims user = %s, want %s", uc.UserID, u.ID)
	}
}

func TestService_Login_WrongPassword(t *testing.T) {
	ctx := context.Background()
	u := testUser("alice@example.com")
	svc := newTestService(newFakeUserRepo(u), newFakeTokenRepo(), nil)

	_, _, err := svc.Login(ctx, Credentials{Email: u.Email, Password: "nope"})
	if err == nil {
		t.Fatal("wrong password must fail")
	}
	if u.FailedLoginAttempts != 1 {
		t.Errorf("FailedLoginAttempts = %d, want 1", u.FailedLoginAttempts)
	}
}

func TestService_Login_UnknownEmailSameError(t *testing.T) {
	ctx := context.Background()
	u := testUser("alice@example.com")
	svc := newTestService(newFakeUserRepo(u), newFakeTokenRepo(), nil)

	_, _, errUnknown := svc.Login(ctx, Credentials{Email: "nobody@example.com", Password: "x"})
	_, _, errWrongPw := svc.Login(ctx, Credentials{Email: u.Email, Password: "x"})

	// The response must not reveal whether the account exists.
	if errUnknown == nil || errWrongPw == nil {
		t.Fatal("both must fail")
	}
	if errUnknown.Error() != errWrongPw.Error() {
		t.Errorf("unknown email error %q differs from wrong password error %q", errUnknown, errWrongPw)
	}
}

func TestService_Login_LockoutAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	u := testUser("alice@example.com")
	svc := newTestService(newFakeUserRepo(u), newFakeTokenRepo(), nil)

	for i := 0; i < maxFailedLoginAttempts; i++ {
		if _, _, err := svc.Login(ctx, Credentials{Email: u.Email, Password: "nope"}); err == nil {
			t.Fatal("wrong password must fail")
		}
	}
	if !u.IsLocked() {
		t.Fatal("account must be locked after repeated failures")
	}

	// Even the correct password is rejected while locked.
	if _, _, err := svc.Login(ctx, Credentials{Email: u.Email, Password: testPassword}); err == nil {
		t.Fatal("locked account must reject login")
	}
}

func TestService_Login_DisabledAccount(t *testing.T) {
	ctx := context.Background()
	u := testUser("alice@example.com")
	u.IsActive = false
	svc := newTestService(newFakeUserRepo(u), newFakeTokenRepo(), nil)

	if _, _, err := svc.Login(ctx, Credentials{Email: u.Email, Password: testPassword}); err == nil {
		t.Fatal("disabled account must reject login")
	}
}

func TestService_RefreshToken_Rotation(t *testing.T) {
	ctx := context.Background()
	u := testUser("alice@example.com")
	tokens := newFakeTokenRepo()
	svc := newTestService(newFakeUserRepo(u), tokens, nil)

	pair, _, err := svc.Login(ctx, Credentials{Email: u.Email, Password: testPassword})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	fresh, err := svc.RefreshToken(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	if fresh.RefreshToken == pair.RefreshToken {
		t.Error("refresh must rotate the token")
	}

	// The old token is single use.
	if _, err := svc.RefreshToken(ctx, pair.RefreshToken); err == nil {
		t.Fatal("rotated token must be rejected")
	}

	// The new one still works.
	if _, err := svc.RefreshToken(ctx, fresh.RefreshToken); err != nil {
		t.Fatalf("fresh token rejected: %v", err)
	}
}

func TestService_Logout(t *testing.T) {
	ctx := context.Background()
	u := testUser("alice@example.com")
	tokens := newFakeTokenRepo()
	svc := newTestService(newFakeUserRepo(u), tokens, nil)

	pair, _, err := svc.Login(ctx, Credentials{Email: u.Email, Password: testPassword})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.RefreshToken(ctx, pair.RefreshToken); err == nil {
		t.Fatal("revoked token must be rejected")
	}

	// Logging out an unknown token is idempotent.
	if err := svc.Logout(ctx, "never-issued"); err != nil {
		t.Errorf("Logout of unknown token: %v", err)
	}
}

func TestService_LogoutAll(t *testing.T) {
	ctx := context.Background()
	u := testUser("alice@example.com")
	tokens := newFakeTokenRepo()
	svc := newTestService(newFakeUserRepo(u), tokens, nil)

	for i := 0; i < 3; i++ {
		if _, _, err := svc.Login(ctx, Credentials{Email: u.Email, Password: testPassword}); err != nil {
			t.Fatalf("Login: %v", err)
		}
	}
	if got := tokens.activeCount(u.ID); got != 3 {
		t.Fatalf("active tokens = %d, want 3", got)
	}

	if err := svc.LogoutAll(ctx, u.ID); err != nil {
		t.Fatalf("LogoutAll: %v", err)
	}
	if got := tokens.activeCount(u.ID); got != 0 {
		t.Errorf("active tokens = %d, want 0", got)
	}
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeUserRepo(), newFakeTokenRepo(), nil)

	u, err := svc.Register(ctx, RegisterRequest{
		Email:     "Bob@Example.com",
		Password:  "long enough password",
		FirstName: "Bob",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Email != "bob@example.com" {
		t.Errorf("email = %q, must be normalized", u.Email)
	}
	if u.PasswordHash == "long enough password" {
		t.Error("password must be hashed")
	}

	// Duplicate email rejected
	if _, err := svc.Register(ctx, RegisterRequest{Email: "bob@example.com", Password: "long enough password"}); err == nil {
		t.Fatal("duplicate email must be rejected")
	}

	// Short password rejected
	if _, err := svc.Register(ctx, RegisterRequest{Email: "carol@example.com", Password: "short"}); err == nil {
		t.Fatal("short password must be rejected")
	}
}

func TestService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	u := testUser("alice@example.com")
	tokens := newFakeTokenRepo()
	svc := newTestService(newFakeUserRepo(u), tokens, nil)

	pair, _, err := svc.Login(ctx, Credentials{Email: u.Email, Password: testPassword})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.ChangePassword(ctx, u.ID, "wrong", "another long password"); err == nil {
		t.Fatal("wrong current password must be rejected")
	}

	if err := svc.ChangePassword(ctx, u.ID, testPassword, "another long password"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	// Other sessions are revoked with the password change.
	if _, err := svc.RefreshToken(ctx, pair.RefreshToken); err == nil {
		t.Fatal("existing sessions must be revoked on password change")
	}

	if _, _, err := svc.Login(ctx, Credentials{Email: u.Email, Password: "another long password"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestService_SetUserActive_RevokesSessions(t *testing.T) {
	ctx := context.Background()
	u := testUser("alice@example.com")
	tokens := newFakeTokenRepo()
	svc := newTestService(newFakeUserRepo(u), tokens, nil)

	if _, _, err := svc.Login(ctx, Credentials{Email: u.Email, Password: testPassword}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.SetUserActive(ctx, u.ID, false); err != nil {
		t.Fatalf("SetUserActive: %v", err)
	}
	if tokens.activeCount(u.ID) != 0 {
		t.Error("disabling an account must revoke its sessions")
	}
	if _, _, err := svc.Login(ctx, Credentials{Email: u.Email, Password: testPassword}); err == nil {
		t.Fatal("disabled account must reject login")
	}
}

func TestService_AssignRole(t *testing.T) {
	ctx := context.Background()
	u := testUser("alice@example.com")
	roles := newFakeRoleRepo(NewRole("manager", "Manager"))
	svc := newTestService(newFakeUserRepo(u), newFakeTokenRepo(), roles)

	if err := svc.AssignRole(ctx, u.ID, "manager"); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	if len(roles.assignments[u.ID]) != 1 {
		t.Error("assignment not recorded")
	}

	if err := svc.AssignRole(ctx, u.ID, "missing"); !apperror.IsNotFound(err) {
		t.Errorf("unknown role: got %v, want not found", err)
	}
}
