package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"easymed-admin-backend/internal/authority"
	"easymed-admin-backend/internal/domain"
	"easymed-admin-backend/internal/logger"
	"easymed-admin-backend/internal/security"
)

// AdminHandler exposes the authority's operations to the web dashboards.
// The authority reports failures as booleans only, so failed team operations
// map to a single 403 regardless of which precondition was violated.
type AdminHandler struct {
	authority *authority.Authority
	tokens    security.TokenManager
}

func NewAdminHandler(auth *authority.Authority, tokens security.TokenManager) *AdminHandler {
	return &AdminHandler{
		authority: auth,
		tokens:    tokens,
	}
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password,omitempty"`
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

type loginResponse struct {
	Success      bool              `json:"success"`
	Token        string            `json:"token,omitempty"`
	Admin        *domain.AdminUser `json:"admin,omitempty"`
	IsSuperAdmin bool              `json:"isSuperAdmin"`
}

func (h *AdminHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid request body"})
		return
	}

	info := &authority.UserInfo{Name: req.Name, Email: req.Email, Phone: req.Phone}
	if !h.authority.Login(r.Context(), req.Identifier, info, req.Password) {
		writeJSON(w, http.StatusUnauthorized, loginResponse{Success: false})
		return
	}

	admin := h.authority.CurrentAdmin()
	token, err := h.tokens.GenerateSessionToken(admin)
	if err != nil {
		logger.Error("Failed to generate session token", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "failed to create session"})
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Success:      true,
		Token:        token,
		Admin:        admin,
		IsSuperAdmin: h.authority.IsSuperAdmin(),
	})
}

func (h *AdminHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.authority.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"admin":        h.authority.CurrentAdmin(),
		"isSuperAdmin": h.authority.IsSuperAdmin(),
	})
}

func (h *AdminHandler) HandleListTeam(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"team": h.authority.Team()})
}

type addMemberRequest struct {
	Name        string           `json:"name"`
	Phone       string           `json:"phone"`
	Email       string           `json:"email,omitempty"`
	Designation string           `json:"designation"`
	Role        domain.AdminRole `json:"role"`
	IsActive    bool             `json:"isActive"`
}

func (h *AdminHandler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	var req addMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid request body"})
		return
	}

	member := domain.AdminUser{
		Name:        req.Name,
		Phone:       req.Phone,
		Email:       req.Email,
		Designation: req.Designation,
		Role:        req.Role,
		IsActive:    req.IsActive,
	}
	if !h.authority.AddTeamMember(r.Context(), member) {
		writeJSON(w, http.StatusForbidden, map[string]any{"success": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type updateMemberRequest struct {
	Name        *string           `json:"name,omitempty"`
	Phone       *string           `json:"phone,omitempty"`
	Email       *string           `json:"email,omitempty"`
	Designation *string           `json:"designation,omitempty"`
	Role        *domain.AdminRole `json:"role,omitempty"`
	IsActive    *bool             `json:"isActive,omitempty"`
}

func (h *AdminHandler) HandleUpdateMember(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req updateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid request body"})
		return
	}

	updates := authority.TeamMemberUpdate{
		Name:        req.Name,
		Phone:       req.Phone,
		Email:       req.Email,
		Designation: req.Designation,
		Role:        req.Role,
		IsActive:    req.IsActive,
	}
	if !h.authority.UpdateTeamMember(r.Context(), id, updates) {
		writeJSON(w, http.StatusForbidden, map[string]any{"success": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *AdminHandler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if !h.authority.RemoveTeamMember(r.Context(), id) {
		writeJSON(w, http.StatusForbidden, map[string]any{"success": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *AdminHandler) HandleCheckPermission(w http.ResponseWriter, r *http.Request) {
	permission := mux.Vars(r)["permission"]
	writeJSON(w, http.StatusOK, map[string]any{
		"permission": permission,
		"allowed":    h.authority.CheckPermission(permission),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}
