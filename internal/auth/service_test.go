package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type recordingMailer struct {
	welcomes []string
	resets   []string
	fail     bool
}

func (m *recordingMailer) SendWelcome(_ context.Context, to, _ string) error {
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.welcomes = append(m.welcomes, to)
	return nil
}

func (m *recordingMailer) SendPasswordReset(_ context.Context, to, resetURL string) error {
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.resets = append(m.resets, to+"|"+resetURL)
	return nil
}

type fixture struct {
	store  *MemoryStore
	svc    *Service
	mailer *recordingMailer
	role   Role
	user   User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := NewMemoryStore()
	issuer, err := NewTokenIssuer(testTokenConfig(), nil)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	mailer := &recordingMailer{}
	svc, err := NewService(store, issuer,
		WithMailer(mailer),
		WithResetURL("https://tracker.example.com/reset-password"),
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if err := svc.EnsureBuiltins(context.Background()); err != nil {
		t.Fatalf("EnsureBuiltins: %v", err)
	}

	role, err := svc.CreateRole(context.Background(), "dispatcher", "", true,
		[]string{PermInventoryRead, PermInventoryCreate})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	user, err := svc.CreateUser(context.Background(), CreateUserInput{
		Email:    "Dispatcher@Example.com",
		Password: "load-it-up-99",
		FullName: "Dana Dispatcher",
		RoleID:   role.ID,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return &fixture{store: store, svc: svc, mailer: mailer, role: role, user: user}
}

func TestLoginRoundTrip(t *testing.T) {
	f := newFixture(t)

	pair, principal, err := f.svc.Login(context.Background(), "dispatcher@example.com", "load-it-up-99", false)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if principal.User.Email != "dispatcher@example.com" {
		t.Fatalf("unexpected principal email: %s", principal.User.Email)
	}
	if !principal.HasPermission(PermInventoryRead) {
		t.Fatal("expected inventory.read in resolved set")
	}
	if principal.HasPermission(PermUsersDelete) {
		t.Fatal("unexpected users.delete in resolved set")
	}

	// Token payloads round-trip to the original identity.
	auth, err := f.svc.Authenticate(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if auth.User.ID != f.user.ID || auth.User.Email != "dispatcher@example.com" {
		t.Fatalf("token did not round-trip: %+v", auth.User)
	}
	if auth.User.RoleName != "dispatcher" {
		t.Fatalf("unexpected role: %s", auth.User.RoleName)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)

	_, _, unknownErr := f.svc.Login(context.Background(), "nobody@example.com", "whatever-pass", false)
	_, _, wrongErr := f.svc.Login(context.Background(), "dispatcher@example.com", "wrong-password", false)

	if unknownErr != ErrInvalidCredentials || wrongErr != ErrInvalidCredentials {
		t.Fatalf("expected identical generic errors, got %v / %v", unknownErr, wrongErr)
	}
	// Twice in a row for the same account as well.
	_, _, again := f.svc.Login(context.Background(), "dispatcher@example.com", "wrong-password", false)
	if again != ErrInvalidCredentials {
		t.Fatalf("expected identical generic error on repeat, got %v", again)
	}
}

func TestLoginInactiveUserRejected(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.DeactivateUser(context.Background(), f.user.ID); err != nil {
		t.Fatalf("DeactivateUser: %v", err)
	}
	_, _, err := f.svc.Login(context.Background(), "dispatcher@example.com", "load-it-up-99", false)
	if err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticateRejectsDeactivatedUser(t *testing.T) {
	f := newFixture(t)
	pair, _, err := f.svc.Login(context.Background(), "dispatcher@example.com", "load-it-up-99", false)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := f.svc.DeactivateUser(context.Background(), f.user.ID); err != nil {
		t.Fatalf("DeactivateUser: %v", err)
	}
	if _, err := f.svc.Authenticate(context.Background(), pair.AccessToken); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken after deactivation, got %v", err)
	}
}

func TestRefreshIssuesNewPair(t *testing.T) {
	f := newFixture(t)
	pair, _, err := f.svc.Login(context.Background(), "dispatcher@example.com", "load-it-up-99", false)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	fresh, principal, err := f.svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if principal.User.ID != f.user.ID {
		t.Fatalf("unexpected principal: %+v", principal.User)
	}
	if _, err := f.svc.Authenticate(context.Background(), fresh.AccessToken); err != nil {
		t.Fatalf("Authenticate refreshed token: %v", err)
	}
	if _, _, err := f.svc.Refresh(context.Background(), pair.AccessToken); err != ErrInvalidToken {
		t.Fatalf("access token must not refresh, got %v", err)
	}
}

func TestInactiveRoleResolvesToEmptySet(t *testing.T) {
	f := newFixture(t)
	inactive := false
	if _, err := f.svc.UpdateRole(context.Background(), f.role.ID, RoleUpdate{IsActive: &inactive}); err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	_, principal, err := f.svc.Login(context.Background(), "dispatcher@example.com", "load-it-up-99", false)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if len(principal.Permissions) != 0 {
		t.Fatalf("expected empty permission set, got %v", principal.PermissionKeys())
	}
}

func TestForgotPasswordFlow(t *testing.T) {
	f := newFixture(t)

	// Unknown address: success, no email.
	if err := f.svc.ForgotPassword(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("ForgotPassword unknown: %v", err)
	}
	if len(f.mailer.resets) != 0 {
		t.Fatalf("unexpected reset email: %v", f.mailer.resets)
	}

	if err := f.svc.ForgotPassword(context.Background(), "dispatcher@example.com"); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	if len(f.mailer.resets) != 1 {
		t.Fatalf("expected one reset email, got %d", len(f.mailer.resets))
	}
	sent := f.mailer.resets[0]
	if !strings.Contains(sent, "https://tracker.example.com/reset-password?token=") {
		t.Fatalf("reset link malformed: %s", sent)
	}

	token := sent[strings.Index(sent, "token=")+len("token="):]
	if err := f.svc.ResetPassword(context.Background(), token, "brand-new-pass-1"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if _, _, err := f.svc.Login(context.Background(), "dispatcher@example.com", "load-it-up-99", false); err != ErrInvalidCredentials {
		t.Fatalf("old password still accepted: %v", err)
	}
	if _, _, err := f.svc.Login(context.Background(), "dispatcher@example.com", "brand-new-pass-1", false); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
}

func TestForgotPasswordMailFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.mailer.fail = true
	if err := f.svc.ForgotPassword(context.Background(), "dispatcher@example.com"); err != nil {
		t.Fatalf("mail failure must not surface: %v", err)
	}
}

func TestResetPasswordRejectsBadToken(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.ResetPassword(context.Background(), "not-a-token", "brand-new-pass-1"); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)

	err := f.svc.ChangePassword(context.Background(), f.user.ID, "wrong-current", "another-pass-22")
	if err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := f.svc.ChangePassword(context.Background(), f.user.ID, "load-it-up-99", "another-pass-22"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, _, err := f.svc.Login(context.Background(), "dispatcher@example.com", "another-pass-22", false); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateUser(context.Background(), CreateUserInput{
		Email:    "dispatcher@example.com",
		Password: "some-password-7",
		FullName: "Duplicate Dana",
		RoleID:   f.role.ID,
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	// Only the original user remains.
	users, total, err := f.svc.ListUsers(context.Background(), Page{})
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if total != 1 || len(users) != 1 {
		t.Fatalf("expected single user, got total=%d len=%d", total, len(users))
	}
}

func TestCreateUserWelcomeMailFailureNonFatal(t *testing.T) {
	f := newFixture(t)
	f.mailer.fail = true
	user, err := f.svc.CreateUser(context.Background(), CreateUserInput{
		Email:    "loader@example.com",
		Password: "some-password-7",
		FullName: "Lee Loader",
		RoleID:   f.role.ID,
	})
	if err != nil {
		t.Fatalf("CreateUser must succeed despite mail failure: %v", err)
	}
	if user.Email != "loader@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestDeleteRoleWithUsersConflicts(t *testing.T) {
	f := newFixture(t)
	err := f.svc.DeleteRole(context.Background(), f.role.ID)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	// Role untouched.
	role, err := f.svc.GetRole(context.Background(), f.role.ID)
	if err != nil {
		t.Fatalf("GetRole: %v", err)
	}
	if role.Name != "dispatcher" || role.UserCount != 1 {
		t.Fatalf("role mutated: %+v", role)
	}
}

func TestRolePermissionReplacement(t *testing.T) {
	f := newFixture(t)
	updated, err := f.svc.UpdateRole(context.Background(), f.role.ID, RoleUpdate{
		Permissions: []string{PermProjectsRead, PermProjectsRead, PermProjectsUpdate},
	})
	if err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	if len(updated.Permissions) != 2 {
		t.Fatalf("expected deduplicated replacement, got %v", updated.Permissions)
	}
	_, principal, err := f.svc.Login(context.Background(), "dispatcher@example.com", "load-it-up-99", false)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if principal.HasPermission(PermInventoryRead) {
		t.Fatal("old permission survived replacement")
	}
	if !principal.HasPermission(PermProjectsRead) {
		t.Fatal("new permission missing")
	}
}

func TestPermissionMatchIsExact(t *testing.T) {
	p := NewPrincipal(User{ID: "u"}, []string{"users.read"})
	for _, probe := range []string{"users.read"} {
		if !p.HasPermission(probe) {
			t.Fatalf("expected match for %q", probe)
		}
	}
	for _, probe := range []string{"Users.Read", "users", "users.", "users.read.all", "users.re"} {
		if p.HasPermission(probe) {
			t.Fatalf("unexpected match for %q", probe)
		}
	}
}

func TestGrantLifecycle(t *testing.T) {
	f := newFixture(t)
	app := f.store.AddApp(App{Name: "Yard Scanner", URL: "https://scanner.example.com", IsActive: true})

	grant, err := f.svc.CreateGrant(context.Background(), NewGrant{
		UserID:    f.user.ID,
		AppID:     app.ID,
		GrantedBy: "admin-1",
	})
	if err != nil {
		t.Fatalf("CreateGrant: %v", err)
	}
	if _, err := f.svc.CreateGrant(context.Background(), NewGrant{UserID: f.user.ID, AppID: app.ID}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate pair, got %v", err)
	}

	apps, err := f.svc.AppsForUser(context.Background(), f.user.ID)
	if err != nil {
		t.Fatalf("AppsForUser: %v", err)
	}
	if len(apps) != 1 || apps[0].Name != "Yard Scanner" {
		t.Fatalf("unexpected apps: %v", apps)
	}

	inactive := false
	if _, err := f.svc.UpdateGrant(context.Background(), grant.ID, GrantUpdate{IsActive: &inactive}); err != nil {
		t.Fatalf("UpdateGrant: %v", err)
	}
	apps, err = f.svc.AppsForUser(context.Background(), f.user.ID)
	if err != nil {
		t.Fatalf("AppsForUser: %v", err)
	}
	if len(apps) != 0 {
		t.Fatalf("deactivated grant still effective: %v", apps)
	}
}

func TestExpiredGrantNotEffective(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expired := now.Add(-time.Minute)
	g := AppGrant{IsActive: true, ExpiresAt: &expired}
	if g.Effective(now) {
		t.Fatal("expired grant reported effective")
	}
	future := now.Add(time.Hour)
	g.ExpiresAt = &future
	if !g.Effective(now) {
		t.Fatal("future-dated grant reported ineffective")
	}
	g.IsActive = false
	if g.Effective(now) {
		t.Fatal("inactive grant reported effective")
	}
}
