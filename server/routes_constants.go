package server

// Route path constants
const (
	RouteLogin   = "/login"
	RouteRefresh = "/refresh"
	RouteMe      = "/me"
	RouteHealth  = "/health"
)
