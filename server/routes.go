package server

import "net/http"

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteHealth, s.HealthHandler())

	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware(s.RequireAuth())...))

	// CORS preflight for the API routes
	for _, path := range []string{RouteLogin, RouteRefresh, RouteMe} {
		s.RegisterRouteHandler("OPTIONS "+path, ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {}, s.APIMiddleware()...))
	}
}
