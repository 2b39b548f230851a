package http

import (
	"github.com/gorilla/mux"

	"easymed-admin-backend/internal/authority"
	"easymed-admin-backend/internal/kvstore"
	"easymed-admin-backend/internal/security"
)

// NewRouter wires all HTTP routes. Login and health are public; everything
// else requires an active session.
func NewRouter(auth *authority.Authority, tokens security.TokenManager, store kvstore.Store) *mux.Router {
	adminHandler := NewAdminHandler(auth, tokens)
	healthHandler := NewHealthHandler(store)
	middleware := NewAuthMiddleware(auth, tokens)

	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", healthHandler.HandleHealth).Methods("GET")
	api.HandleFunc("/admin/login", adminHandler.HandleLogin).Methods("POST")

	api.HandleFunc("/admin/logout", middleware.RequireSession(adminHandler.HandleLogout)).Methods("POST")
	api.HandleFunc("/admin/me", middleware.RequireSession(adminHandler.HandleMe)).Methods("GET")
	api.HandleFunc("/admin/team", middleware.RequireSession(adminHandler.HandleListTeam)).Methods("GET")
	api.HandleFunc("/admin/team", middleware.RequireSession(adminHandler.HandleAddMember)).Methods("POST")
	api.HandleFunc("/admin/team/{id}", middleware.RequireSession(adminHandler.HandleUpdateMember)).Methods("PATCH")
	api.HandleFunc("/admin/team/{id}", middleware.RequireSession(adminHandler.HandleRemoveMember)).Methods("DELETE")
	api.HandleFunc("/admin/permissions/{permission}", middleware.RequireSession(adminHandler.HandleCheckPermission)).Methods("GET")

	return router
}
