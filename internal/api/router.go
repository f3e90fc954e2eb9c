package api

import (
	"net/http"

	"foodshare-service/internal/api/handlers"
	"foodshare-service/internal/platform/auth"
	"foodshare-service/internal/ports"
	"foodshare-service/internal/services"
)

// NewRouter wires HTTP handlers with their dependencies and returns an
// http.Handler. This is the API composition root (handlers stay unaware of
// concrete adapters).
func NewRouter(
	arbiter *services.ClaimArbiter,
	store ports.PackageStore,
	users ports.UserStore,
	sessions *auth.SessionManager,
) http.Handler {
	mux := http.NewServeMux()

	userHandler := &handlers.UserHandler{Users: users, Sessions: sessions}
	pkgHandler := &handlers.PackageHandler{Arbiter: arbiter, Store: store, Users: users}

	withSession := func(h http.HandlerFunc) http.Handler {
		return sessionMiddleware(sessions, h)
	}

	mux.HandleFunc("/health", handlers.Health)

	// Anonymous and password-gated user endpoints.
	mux.HandleFunc("/api/user/register", userHandler.Register)
	mux.HandleFunc("/api/user/login", userHandler.Login)
	mux.HandleFunc("/api/user/logoutall", userHandler.LogoutAll)
	mux.HandleFunc("/api/user/setinfo", userHandler.SetInfo)
	mux.HandleFunc("/api/user/setpassword", userHandler.SetPassword)
	mux.HandleFunc("/api/user/delete", userHandler.Delete)

	// Session-gated user endpoints.
	mux.Handle("/api/user/logout", withSession(userHandler.Logout))
	mux.Handle("/api/user/getinfo", withSession(userHandler.GetInfo))
	mux.Handle("/api/user/getusertype", withSession(userHandler.GetUserType))

	// Session-gated package endpoints.
	mux.Handle("/api/package/getpackages", withSession(pkgHandler.GetPackages))
	mux.Handle("/api/package/createpackage", withSession(pkgHandler.CreatePackage))
	mux.Handle("/api/package/deletepackage", withSession(pkgHandler.DeletePackage))
	mux.Handle("/api/package/claim", withSession(pkgHandler.Claim))
	mux.Handle("/api/package/markreceived", withSession(pkgHandler.MarkReceived))

	return loggingMiddleware(mux)
}
