// Package authority owns the admin session and the team roster: who the
// current admin is, who is on the team, and what each of them may do. It is
// the single writer of both; UI-facing layers interact only through its
// operations and react to boolean results.
package authority

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"easymed-admin-backend/internal/config"
	"easymed-admin-backend/internal/domain"
	"easymed-admin-backend/internal/kvstore"
	"easymed-admin-backend/internal/logger"
	"easymed-admin-backend/internal/security"
)

// Store keys, unchanged from the original application so existing persisted
// state rehydrates cleanly.
const (
	SessionKey = "easymed_admin"
	TeamKey    = "easymed_admin_team"
)

// Synthesized identities for the reserved super-admin login paths.
const (
	superAdminID      = "super_admin_001"
	superAdminEmailID = "super_admin_email_001"
	superAdminName    = "Super Admin"
	superAdminTitle   = "System Administrator"
)

// Display names for specific allow-listed emails.
var superAdminNames = map[string]string{
	"praveen@stellaronehealth.com": "Praveen - StellarOne Health",
}

// UserInfo carries optional caller-supplied identity hints for login.
type UserInfo struct {
	Name  string
	Email string
	Phone string
}

// TeamMemberUpdate is a field-level merge over an existing roster entry; nil
// fields are left unchanged. Permissions cannot be supplied directly: they
// are recomputed when Role changes and untouched otherwise.
type TeamMemberUpdate struct {
	Name        *string
	Phone       *string
	Email       *string
	Designation *string
	Role        *domain.AdminRole
	IsActive    *bool
}

// Notifier is told about roster changes. Implementations must not block for
// long and may not fail an operation; the authority ignores their outcome.
type Notifier interface {
	MemberAdded(ctx context.Context, member domain.AdminUser)
	MemberRemoved(ctx context.Context, member domain.AdminUser)
}

// Authority is safe for concurrent use. Every operation runs to completion
// under the lock; failures are reported through the boolean return and never
// as a panic or error.
type Authority struct {
	mu       sync.RWMutex
	store    kvstore.Store
	cfg      config.AdminConfig
	notifier Notifier

	current       *domain.AdminUser
	team          []domain.AdminUser
	authenticated bool

	now   func() time.Time
	newID func() string
}

func New(store kvstore.Store, cfg config.AdminConfig, notifier Notifier) *Authority {
	return &Authority{
		store:    store,
		cfg:      cfg,
		notifier: notifier,
		now:      time.Now,
		newID: func() string {
			return "admin_" + uuid.NewString()
		},
	}
}

// Load rehydrates a previously persisted session and roster. Malformed or
// unreadable state is treated as absent; initialization never fails.
func (a *Authority) Load(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if data, err := a.store.Get(ctx, SessionKey); err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			logger.Warn("Failed to read persisted admin session", "error", err)
		}
	} else {
		var admin domain.AdminUser
		if err := json.Unmarshal(data, &admin); err != nil {
			logger.Error("Persisted admin session is malformed, discarding", "error", err)
		} else {
			a.current = &admin
			a.authenticated = true
		}
	}

	if data, err := a.store.Get(ctx, TeamKey); err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			logger.Warn("Failed to read persisted admin team", "error", err)
		}
	} else {
		var team []domain.AdminUser
		if err := json.Unmarshal(data, &team); err != nil {
			logger.Error("Persisted admin team is malformed, discarding", "error", err)
		} else {
			a.team = team
		}
	}
}

// Login evaluates the fixed rule order: reserved phone, reserved email with
// password, active team member by phone, active team member by email. The
// first matching rule wins; on no match the session is left untouched.
func (a *Authority) Login(ctx context.Context, identifier string, info *UserInfo, password string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if info == nil {
		info = &UserInfo{}
	}

	if identifier == a.cfg.SuperAdminPhone {
		name := info.Name
		if name == "" {
			name = superAdminName
		}
		a.setSessionLocked(ctx, &domain.AdminUser{
			ID:          superAdminID,
			Name:        name,
			Phone:       a.cfg.SuperAdminPhone,
			Email:       info.Email,
			Designation: superAdminTitle,
			Role:        domain.RoleSuperAdmin,
			Permissions: domain.SuperAdminPermissions(),
			CreatedAt:   a.now(),
			IsActive:    true,
		})
		return true
	}

	// Rule 2 matches only when both the email and the password check out;
	// otherwise evaluation falls through to the roster rules.
	if containsString(a.cfg.SuperAdminEmails, identifier) &&
		security.MatchesAnyPassword(password, a.cfg.AdminPasswords) {
		name := superAdminName
		if n, ok := superAdminNames[identifier]; ok {
			name = n
		}
		phone := info.Phone
		if phone == "" {
			phone = a.cfg.SuperAdminPhone
		}
		a.setSessionLocked(ctx, &domain.AdminUser{
			ID:          superAdminEmailID,
			Name:        name,
			Phone:       phone,
			Email:       identifier,
			Designation: superAdminTitle,
			Role:        domain.RoleSuperAdmin,
			Permissions: domain.SuperAdminPermissions(),
			CreatedAt:   a.now(),
			IsActive:    true,
		})
		return true
	}

	for i := range a.team {
		if a.team[i].Phone == identifier && a.team[i].IsActive {
			a.setSessionLocked(ctx, a.team[i].Clone())
			return true
		}
	}
	for i := range a.team {
		if a.team[i].Email == identifier && a.team[i].Email != "" && a.team[i].IsActive {
			a.setSessionLocked(ctx, a.team[i].Clone())
			return true
		}
	}

	return false
}

// Logout clears the session. Calling it when already logged out is a no-op.
func (a *Authority) Logout(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.current = nil
	a.authenticated = false
	if err := a.store.Delete(ctx, SessionKey); err != nil {
		logger.Warn("Failed to delete persisted admin session", "error", err)
	}
}

// IsAuthenticated reports whether a login has succeeded this session.
func (a *Authority) IsAuthenticated() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.authenticated
}

// IsSuperAdmin is recomputed on every access from the current session's
// phone and email against the reserved identity.
func (a *Authority) IsSuperAdmin() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.isSuperAdminLocked()
}

// CurrentAdmin returns a copy of the authenticated admin, or nil.
func (a *Authority) CurrentAdmin() *domain.AdminUser {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current.Clone()
}

// Team returns a copy of the roster in insertion order.
func (a *Authority) Team() []domain.AdminUser {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]domain.AdminUser, 0, len(a.team))
	for i := range a.team {
		out = append(out, *a.team[i].Clone())
	}
	return out
}

// AddTeamMember appends a new roster entry. The caller must be super-admin
// or hold the admin role, and the phone must be unused. The member's id,
// creation time and permissions are assigned here; any caller-supplied
// permissions are discarded in favor of the role table.
func (a *Authority) AddTeamMember(ctx context.Context, member domain.AdminUser) bool {
	a.mu.Lock()

	if !a.canManageTeamLocked() {
		a.mu.Unlock()
		logger.Warn("Insufficient permissions to add team member")
		return false
	}
	for i := range a.team {
		if a.team[i].Phone == member.Phone {
			a.mu.Unlock()
			logger.Warn("Phone number already exists in team", "phone", member.Phone)
			return false
		}
	}

	member.ID = a.newID()
	member.CreatedAt = a.now()
	member.Permissions = domain.PermissionsForRole(member.Role)

	a.team = append(a.team, member)
	a.persistTeamLocked(ctx)
	a.mu.Unlock()

	if a.notifier != nil {
		a.notifier.MemberAdded(ctx, member)
	}
	return true
}

// UpdateTeamMember merges updates into the entry with the given id. When the
// role changes, permissions are recomputed from the role table; an
// unrecognized new role leaves the permission set unchanged. With lenient
// updates (the default) a missing id is still a success.
func (a *Authority) UpdateTeamMember(ctx context.Context, id string, updates TeamMemberUpdate) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.canManageTeamLocked() {
		logger.Warn("Insufficient permissions to update team member")
		return false
	}

	matched := false
	for i := range a.team {
		if a.team[i].ID != id {
			continue
		}
		matched = true
		m := &a.team[i]
		if updates.Name != nil {
			m.Name = *updates.Name
		}
		if updates.Phone != nil {
			m.Phone = *updates.Phone
		}
		if updates.Email != nil {
			m.Email = *updates.Email
		}
		if updates.Designation != nil {
			m.Designation = *updates.Designation
		}
		if updates.IsActive != nil {
			m.IsActive = *updates.IsActive
		}
		if updates.Role != nil {
			m.Role = *updates.Role
			if perms, ok := domain.RolePermissions(*updates.Role); ok {
				m.Permissions = perms
			}
		}
	}

	a.persistTeamLocked(ctx)

	if a.cfg.StrictUpdates && !matched {
		return false
	}
	return true
}

// RemoveTeamMember deletes the entry with the given id. Only the super-admin
// may remove members; the admin role is deliberately insufficient.
func (a *Authority) RemoveTeamMember(ctx context.Context, id string) bool {
	a.mu.Lock()

	if !a.isSuperAdminLocked() {
		a.mu.Unlock()
		logger.Warn("Only super admin can remove team members")
		return false
	}

	var removed *domain.AdminUser
	kept := a.team[:0]
	for i := range a.team {
		if a.team[i].ID == id {
			removed = a.team[i].Clone()
			continue
		}
		kept = append(kept, a.team[i])
	}
	a.team = kept
	a.persistTeamLocked(ctx)
	a.mu.Unlock()

	if removed != nil && a.notifier != nil {
		a.notifier.MemberRemoved(ctx, *removed)
	}
	return true
}

// CheckPermission reports whether the current admin holds the permission
// tag. The super-admin bypasses the explicit permission set entirely.
func (a *Authority) CheckPermission(permission string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.current == nil {
		return false
	}
	return a.current.HasPermission(permission) || a.isSuperAdminLocked()
}

func (a *Authority) isSuperAdminLocked() bool {
	if a.current == nil {
		return false
	}
	if a.current.Phone == a.cfg.SuperAdminPhone {
		return true
	}
	return a.current.Email != "" && containsString(a.cfg.SuperAdminEmails, a.current.Email)
}

func (a *Authority) canManageTeamLocked() bool {
	if a.isSuperAdminLocked() {
		return true
	}
	return a.current != nil && a.current.Role == domain.RoleAdmin
}

func (a *Authority) setSessionLocked(ctx context.Context, admin *domain.AdminUser) {
	a.current = admin
	a.authenticated = true
	a.persistSessionLocked(ctx)
	logger.Info("Admin logged in", "admin_id", admin.ID, "role", admin.Role)
}

// Persistence failures are logged and swallowed: the in-memory session stays
// valid for the rest of the process even when the store is unavailable.
func (a *Authority) persistSessionLocked(ctx context.Context) {
	data, err := json.Marshal(a.current)
	if err != nil {
		logger.Warn("Failed to serialize admin session", "error", err)
		return
	}
	if err := a.store.Set(ctx, SessionKey, data); err != nil {
		logger.Warn("Failed to persist admin session", "error", err)
	}
}

func (a *Authority) persistTeamLocked(ctx context.Context) {
	data, err := json.Marshal(a.team)
	if err != nil {
		logger.Warn("Failed to serialize admin team", "error", err)
		return
	}
	if err := a.store.Set(ctx, TeamKey, data); err != nil {
		logger.Warn("Failed to persist admin team", "error", err)
	}
}

func containsString(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
