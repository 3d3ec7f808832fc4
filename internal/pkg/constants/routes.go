package constants

// Static route constants
const (
	APIRoute    = "/api"
	APIv1Route  = "/v1"
	StreamsPath = "/streams"
	AccessPath  = "/access"
	PublicRoute = "/"
)
