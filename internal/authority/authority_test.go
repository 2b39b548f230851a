package authority

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"easymed-admin-backend/internal/config"
	"easymed-admin-backend/internal/domain"
	"easymed-admin-backend/internal/kvstore"
)

func testAdminConfig() config.AdminConfig {
	return config.AdminConfig{
		SuperAdminPhone: "9060328119",
		SuperAdminEmails: []string{
			"admin@easymed.in",
			"admin@gmail.com",
			"superadmin@easymed.in",
			"praveen@stellaronehealth.com",
		},
		AdminPasswords: []string{"admin123", "easymed2025", "admin@123", "dummy123"},
	}
}

func newTestAuthority(store kvstore.Store, cfg config.AdminConfig) *Authority {
	a := New(store, cfg, nil)
	a.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	seq := 0
	a.newID = func() string {
		seq++
		return fmt.Sprintf("admin_test_%d", seq)
	}
	return a
}

// loginSuper authenticates via the reserved phone.
func loginSuper(t *testing.T, a *Authority) {
	t.Helper()
	require.True(t, a.Login(context.Background(), "9060328119", nil, ""))
}

func TestLogin_ReservedPhone(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	a := newTestAuthority(store, testAdminConfig())

	t.Run("AlwaysSucceedsOnEmptyTeam", func(t *testing.T) {
		ok := a.Login(ctx, "9060328119", &UserInfo{Name: "Dr. Rao", Email: "rao@easymed.in"}, "")
		assert.True(t, ok)
		assert.True(t, a.IsAuthenticated())
		assert.True(t, a.IsSuperAdmin())

		current := a.CurrentAdmin()
		require.NotNil(t, current)
		assert.Equal(t, "super_admin_001", current.ID)
		assert.Equal(t, "Dr. Rao", current.Name)
		assert.Equal(t, "9060328119", current.Phone)
		assert.Equal(t, domain.RoleSuperAdmin, current.Role)
		assert.True(t, current.IsActive)
		assert.ElementsMatch(t, domain.SuperAdminPermissions(), current.Permissions)
	})

	t.Run("DefaultNameWithoutUserInfo", func(t *testing.T) {
		assert.True(t, a.Login(ctx, "9060328119", nil, ""))
		assert.Equal(t, "Super Admin", a.CurrentAdmin().Name)
	})

	t.Run("SessionPersisted", func(t *testing.T) {
		data, err := store.Get(ctx, SessionKey)
		require.NoError(t, err)
		var persisted domain.AdminUser
		require.NoError(t, json.Unmarshal(data, &persisted))
		assert.Equal(t, "super_admin_001", persisted.ID)
	})
}

func TestLogin_EmailAndPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("BothRequired", func(t *testing.T) {
		a := newTestAuthority(kvstore.NewMemoryStore(), testAdminConfig())

		assert.False(t, a.Login(ctx, "admin@easymed.in", nil, "wrong"))
		assert.False(t, a.Login(ctx, "admin@easymed.in", nil, ""))
		assert.False(t, a.Login(ctx, "stranger@easymed.in", nil, "admin123"))
		assert.False(t, a.IsAuthenticated())
		assert.Nil(t, a.CurrentAdmin())
	})

	t.Run("SucceedsWithValidPair", func(t *testing.T) {
		a := newTestAuthority(kvstore.NewMemoryStore(), testAdminConfig())

		assert.True(t, a.Login(ctx, "admin@easymed.in", nil, "easymed2025"))
		current := a.CurrentAdmin()
		require.NotNil(t, current)
		assert.Equal(t, "super_admin_email_001", current.ID)
		assert.Equal(t, "Super Admin", current.Name)
		assert.Equal(t, "admin@easymed.in", current.Email)
		assert.Equal(t, "9060328119", current.Phone) // falls back to reserved phone
		assert.True(t, a.IsSuperAdmin())
	})

	t.Run("NameVariesByEmail", func(t *testing.T) {
		a := newTestAuthority(kvstore.NewMemoryStore(), testAdminConfig())

		assert.True(t, a.Login(ctx, "praveen@stellaronehealth.com", nil, "admin123"))
		assert.Equal(t, "Praveen - StellarOne Health", a.CurrentAdmin().Name)
	})
}

func TestLogin_TeamMembers(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	a := newTestAuthority(store, testAdminConfig())

	loginSuper(t, a)
	require.True(t, a.AddTeamMember(ctx, domain.AdminUser{
		Name: "Meera", Phone: "5550001", Email: "meera@easymed.in",
		Designation: "Operations", Role: domain.RoleManager, IsActive: true,
	}))
	require.True(t, a.AddTeamMember(ctx, domain.AdminUser{
		Name: "Arun", Phone: "5550002", Email: "arun@easymed.in",
		Designation: "Support", Role: domain.RoleCoordinator, IsActive: false,
	}))
	a.Logout(ctx)

	t.Run("ByPhone", func(t *testing.T) {
		assert.True(t, a.Login(ctx, "5550001", nil, ""))
		current := a.CurrentAdmin()
		require.NotNil(t, current)
		assert.Equal(t, "Meera", current.Name)
		assert.Equal(t, domain.RoleManager, current.Role)
		assert.False(t, a.IsSuperAdmin())
		a.Logout(ctx)
	})

	t.Run("ByEmail", func(t *testing.T) {
		assert.True(t, a.Login(ctx, "meera@easymed.in", nil, ""))
		assert.Equal(t, "Meera", a.CurrentAdmin().Name)
		a.Logout(ctx)
	})

	t.Run("InactiveMemberRejected", func(t *testing.T) {
		assert.False(t, a.Login(ctx, "5550002", nil, ""))
		assert.False(t, a.Login(ctx, "arun@easymed.in", nil, ""))
		assert.Nil(t, a.CurrentAdmin())
	})

	t.Run("UnknownIdentifierFailsClosed", func(t *testing.T) {
		require.True(t, a.Login(ctx, "5550001", nil, ""))
		before := a.CurrentAdmin()

		assert.False(t, a.Login(ctx, "no-such-identifier", nil, "admin123"))
		after := a.CurrentAdmin()
		require.NotNil(t, after)
		assert.Equal(t, before.ID, after.ID)
		a.Logout(ctx)
	})
}

func TestLogin_ReservedPhoneWinsOverRoster(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()

	// Seed a persisted roster entry that shares the reserved phone.
	team := []domain.AdminUser{{
		ID: "admin_shadow", Name: "Shadow", Phone: "9060328119",
		Role: domain.RoleCoordinator, IsActive: true,
	}}
	data, err := json.Marshal(team)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, TeamKey, data))

	a := newTestAuthority(store, testAdminConfig())
	a.Load(ctx)

	assert.True(t, a.Login(ctx, "9060328119", nil, ""))
	assert.Equal(t, "super_admin_001", a.CurrentAdmin().ID)
}

func TestAddTeamMember(t *testing.T) {
	ctx := context.Background()

	t.Run("RequiresLogin", func(t *testing.T) {
		a := newTestAuthority(kvstore.NewMemoryStore(), testAdminConfig())
		assert.False(t, a.AddTeamMember(ctx, domain.AdminUser{Name: "X", Phone: "1"}))
		assert.Empty(t, a.Team())
	})

	t.Run("DuplicatePhoneRejected", func(t *testing.T) {
		a := newTestAuthority(kvstore.NewMemoryStore(), testAdminConfig())
		loginSuper(t, a)

		require.True(t, a.AddTeamMember(ctx, domain.AdminUser{Name: "A", Phone: "P", Role: domain.RoleManager, IsActive: true}))
		assert.False(t, a.AddTeamMember(ctx, domain.AdminUser{Name: "B", Phone: "P", Role: domain.RoleAdmin, IsActive: true}))
		assert.Len(t, a.Team(), 1)
	})

	t.Run("PermissionsComeFromRoleTable", func(t *testing.T) {
		a := newTestAuthority(kvstore.NewMemoryStore(), testAdminConfig())
		loginSuper(t, a)

		require.True(t, a.AddTeamMember(ctx, domain.AdminUser{
			Name: "C", Phone: "5551234", Role: domain.RoleManager, IsActive: true,
			Permissions: []string{"bogus"},
		}))
		team := a.Team()
		require.Len(t, team, 1)
		expected := domain.PermissionsForRole(domain.RoleManager)
		assert.Equal(t, expected, team[0].Permissions)
		assert.NotContains(t, team[0].Permissions, "bogus")
	})

	t.Run("UnknownRoleFallsBackToCoordinator", func(t *testing.T) {
		a := newTestAuthority(kvstore.NewMemoryStore(), testAdminConfig())
		loginSuper(t, a)

		require.True(t, a.AddTeamMember(ctx, domain.AdminUser{Name: "D", Phone: "5555678", Role: "intern", IsActive: true}))
		team := a.Team()
		require.Len(t, team, 1)
		assert.Equal(t, domain.PermissionsForRole(domain.RoleCoordinator), team[0].Permissions)
	})

	t.Run("AdminRoleMayAdd", func(t *testing.T) {
		a := newTestAuthority(kvstore.NewMemoryStore(), testAdminConfig())
		loginSuper(t, a)
		require.True(t, a.AddTeamMember(ctx, domain.AdminUser{Name: "Admin Ana", Phone: "7770001", Role: domain.RoleAdmin, IsActive: true}))
		a.Logout(ctx)

		require.True(t, a.Login(ctx, "7770001", nil, ""))
		assert.True(t, a.AddTeamMember(ctx, domain.AdminUser{Name: "New", Phone: "7770002", Role: domain.RoleCoordinator, IsActive: true}))
	})

	t.Run("ManagerRoleMayNotAdd", func(t *testing.T) {
		a := newTestAuthority(kvstore.NewMemoryStore(), testAdminConfig())
		loginSuper(t, a)
		require.True(t, a.AddTeamMember(ctx, domain.AdminUser{Name: "Mgr", Phone: "8880001", Role: domain.RoleManager, IsActive: true}))
		a.Logout(ctx)

		require.True(t, a.Login(ctx, "8880001", nil, ""))
		assert.False(t, a.AddTeamMember(ctx, domain.AdminUser{Name: "New", Phone: "8880002", Role: domain.RoleCoordinator, IsActive: true}))
		assert.Len(t, a.Team(), 1)
	})

	t.Run("AssignsIDAndCreatedAt", func(t *testing.T) {
		a := newTestAuthority(kvstore.NewMemoryStore(), testAdminConfig())
		loginSuper(t, a)

		require.True(t, a.AddTeamMember(ctx, domain.AdminUser{Name: "E", Phone: "9990001", Role: domain.RoleAdmin, IsActive: true}))
		team := a.Team()
		require.Len(t, team, 1)
		assert.Equal(t, "admin_test_1", team[0].ID)
		assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), team[0].CreatedAt)
	})
}

func TestUpdateTeamMember(t *testing.T) {
	ctx := context.Background()

	setup := func(cfg config.AdminConfig) (*Authority, string) {
		a := newTestAuthority(kvstore.NewMemoryStore(), cfg)
		loginSuper(t, a)
		require.True(t, a.AddTeamMember(ctx, domain.AdminUser{
			Name: "Meera", Phone: "5550001", Email: "meera@easymed.in",
			Designation: "Operations", Role: domain.RoleManager, IsActive: true,
		}))
		return a, a.Team()[0].ID
	}

	t.Run("MergesOnlyProvidedFields", func(t *testing.T) {
		a, id := setup(testAdminConfig())

		newName := "Meera K"
		assert.True(t, a.UpdateTeamMember(ctx, id, TeamMemberUpdate{Name: &newName}))
		m := a.Team()[0]
		assert.Equal(t, "Meera K", m.Name)
		assert.Equal(t, "5550001", m.Phone)
		assert.Equal(t, domain.RoleManager, m.Role)
		assert.Equal(t, domain.PermissionsForRole(domain.RoleManager), m.Permissions)
	})

	t.Run("RoleChangeRecomputesPermissions", func(t *testing.T) {
		a, id := setup(testAdminConfig())

		newRole := domain.RoleAdmin
		assert.True(t, a.UpdateTeamMember(ctx, id, TeamMemberUpdate{Role: &newRole}))
		m := a.Team()[0]
		assert.Equal(t, domain.RoleAdmin, m.Role)
		assert.Equal(t, domain.PermissionsForRole(domain.RoleAdmin), m.Permissions)
	})

	t.Run("UnknownRoleKeepsPermissions", func(t *testing.T) {
		a, id := setup(testAdminConfig())
		before := a.Team()[0].Permissions

		unknown := domain.AdminRole("consultant")
		assert.True(t, a.UpdateTeamMember(ctx, id, TeamMemberUpdate{Role: &unknown}))
		m := a.Team()[0]
		assert.Equal(t, unknown, m.Role)
		assert.Equal(t, before, m.Permissions)
	})

	t.Run("MissingIDIsLenientSuccess", func(t *testing.T) {
		a, _ := setup(testAdminConfig())
		assert.True(t, a.UpdateTeamMember(ctx, "no-such-id", TeamMemberUpdate{}))
	})

	t.Run("MissingIDFailsWhenStrict", func(t *testing.T) {
		cfg := testAdminConfig()
		cfg.StrictUpdates = true
		a, id := setup(cfg)

		assert.False(t, a.UpdateTeamMember(ctx, "no-such-id", TeamMemberUpdate{}))
		newName := "Still Works"
		assert.True(t, a.UpdateTeamMember(ctx, id, TeamMemberUpdate{Name: &newName}))
	})

	t.Run("RequiresManagementRole", func(t *testing.T) {
		a, id := setup(testAdminConfig())
		a.Logout(ctx)

		assert.False(t, a.UpdateTeamMember(ctx, id, TeamMemberUpdate{}))

		require.True(t, a.Login(ctx, "5550001", nil, "")) // manager
		assert.False(t, a.UpdateTeamMember(ctx, id, TeamMemberUpdate{}))
	})
}

func TestRemoveTeamMember(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthority(kvstore.NewMemoryStore(), testAdminConfig())

	loginSuper(t, a)
	require.True(t, a.AddTeamMember(ctx, domain.AdminUser{Name: "Admin Ana", Phone: "7770001", Role: domain.RoleAdmin, IsActive: true}))
	require.True(t, a.AddTeamMember(ctx, domain.AdminUser{Name: "Target", Phone: "7770002", Role: domain.RoleCoordinator, IsActive: true}))
	targetID := a.Team()[1].ID

	t.Run("AdminRoleInsufficient", func(t *testing.T) {
		a.Logout(ctx)
		require.True(t, a.Login(ctx, "7770001", nil, ""))

		assert.False(t, a.RemoveTeamMember(ctx, targetID))
		assert.Len(t, a.Team(), 2)
	})

	t.Run("SuperAdminMayRemove", func(t *testing.T) {
		a.Logout(ctx)
		loginSuper(t, a)

		assert.True(t, a.RemoveTeamMember(ctx, targetID))
		team := a.Team()
		require.Len(t, team, 1)
		assert.Equal(t, "Admin Ana", team[0].Name)
	})

	t.Run("MissingIDStillSucceeds", func(t *testing.T) {
		assert.True(t, a.RemoveTeamMember(ctx, "no-such-id"))
		assert.Len(t, a.Team(), 1)
	})
}

func TestCheckPermission(t *testing.T) {
	ctx := context.Background()

	t.Run("LoggedOutDenied", func(t *testing.T) {
		a := newTestAuthority(kvstore.NewMemoryStore(), testAdminConfig())
		assert.False(t, a.CheckPermission("view_data"))
	})

	t.Run("SuperAdminBypassesPermissionSet", func(t *testing.T) {
		a := newTestAuthority(kvstore.NewMemoryStore(), testAdminConfig())
		loginSuper(t, a)
		assert.True(t, a.CheckPermission("anything-not-in-table"))
	})

	t.Run("MemberLimitedToOwnSet", func(t *testing.T) {
		a := newTestAuthority(kvstore.NewMemoryStore(), testAdminConfig())
		loginSuper(t, a)
		require.True(t, a.AddTeamMember(ctx, domain.AdminUser{Name: "Coord", Phone: "5559999", Role: domain.RoleCoordinator, IsActive: true}))
		a.Logout(ctx)

		require.True(t, a.Login(ctx, "5559999", nil, ""))
		assert.True(t, a.CheckPermission("view_data"))
		assert.False(t, a.CheckPermission("anything-not-in-table"))
		assert.False(t, a.CheckPermission("manage_team"))
	})
}

func TestLogout_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	a := newTestAuthority(store, testAdminConfig())

	loginSuper(t, a)
	a.Logout(ctx)
	assert.Nil(t, a.CurrentAdmin())
	assert.False(t, a.IsAuthenticated())

	_, err := store.Get(ctx, SessionKey)
	assert.ErrorIs(t, err, kvstore.ErrNotFound)

	// Second logout is a no-op.
	a.Logout(ctx)
	assert.Nil(t, a.CurrentAdmin())
	assert.False(t, a.IsAuthenticated())
}

func TestPersistence_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()

	a := newTestAuthority(store, testAdminConfig())
	loginSuper(t, a)
	require.True(t, a.AddTeamMember(ctx, domain.AdminUser{
		Name: "Meera", Phone: "5550001", Email: "meera@easymed.in",
		Designation: "Operations", Role: domain.RoleManager, IsActive: true,
	}))
	require.True(t, a.AddTeamMember(ctx, domain.AdminUser{
		Name: "Arun", Phone: "5550002", Designation: "Support",
		Role: domain.RoleCoordinator, IsActive: false,
	}))
	want := a.Team()

	// Simulate a process restart over the same store.
	restarted := newTestAuthority(store, testAdminConfig())
	restarted.Load(ctx)

	assert.True(t, restarted.IsAuthenticated())
	require.NotNil(t, restarted.CurrentAdmin())
	assert.Equal(t, "super_admin_001", restarted.CurrentAdmin().ID)

	got := restarted.Team()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Name, got[i].Name)
		assert.Equal(t, want[i].Phone, got[i].Phone)
		assert.Equal(t, want[i].Email, got[i].Email)
		assert.Equal(t, want[i].Designation, got[i].Designation)
		assert.Equal(t, want[i].Role, got[i].Role)
		assert.Equal(t, want[i].Permissions, got[i].Permissions)
		assert.Equal(t, want[i].IsActive, got[i].IsActive)
		assert.True(t, want[i].CreatedAt.Equal(got[i].CreatedAt))
	}
}

func TestLoad_MalformedStateTreatedAsAbsent(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, SessionKey, []byte("{not json")))
	require.NoError(t, store.Set(ctx, TeamKey, []byte("[broken")))

	a := newTestAuthority(store, testAdminConfig())
	a.Load(ctx)

	assert.False(t, a.IsAuthenticated())
	assert.Nil(t, a.CurrentAdmin())
	assert.Empty(t, a.Team())
}

// failingStore simulates an unavailable persistence store.
type failingStore struct{}

func (failingStore) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("store unavailable")
}
func (failingStore) Set(ctx context.Context, key string, value []byte) error {
	return errors.New("store unavailable")
}
func (failingStore) Delete(ctx context.Context, key string) error {
	return errors.New("store unavailable")
}
func (failingStore) Ping(ctx context.Context) error {
	return errors.New("store unavailable")
}

func TestStoreFailures_DoNotAffectSession(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthority(failingStore{}, testAdminConfig())

	// Load degrades to empty state.
	a.Load(ctx)
	assert.False(t, a.IsAuthenticated())

	// Login and roster changes keep working in memory.
	assert.True(t, a.Login(ctx, "9060328119", nil, ""))
	assert.True(t, a.AddTeamMember(ctx, domain.AdminUser{Name: "M", Phone: "5550001", Role: domain.RoleManager, IsActive: true}))
	assert.Len(t, a.Team(), 1)

	a.Logout(ctx)
	assert.False(t, a.IsAuthenticated())
}
