package server

const (
	loginRoute   = "POST /auth/login"
	refreshRoute = "POST /auth/refresh"
	logoutRoute  = "POST /auth/logout"
	meRoute      = "GET /auth/me"
	jwksRoute    = "GET /.well-known/jwks.json"
	healthRoute  = "GET /healthz"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc(loginRoute, s.LoginHandler())
	s.RegisterRouteFunc(refreshRoute, s.RefreshHandler())
	s.RegisterRouteFunc(logoutRoute, s.LogoutHandler())
	s.RegisterRouteFunc(meRoute, s.RequireAuth()(s.MeHandler()))
	s.RegisterRouteFunc(jwksRoute, s.JWKSHandler())
	s.RegisterRouteFunc(healthRoute, s.HealthHandler())
}
