package auth

import "github.com/valyala/fasthttp"

// caller role
type Role int

const (
	RoleAnonymous Role = iota
	RoleAdmin
)

func (r Role) String() string {
	if r == RoleAdmin {
		return "admin"
	}
	return "anonymous"
}

const roleKey = "auth.role"

// RoleFrom returns the role the gateway assigned to the request.
func RoleFrom(ctx *fasthttp.RequestCtx) Role {
	if r, ok := ctx.UserValue(roleKey).(Role); ok {
		return r
	}
	return RoleAnonymous
}

// SecConfig is the gateway's view of the security settings.
type SecConfig struct {
	AllowedOrigins []string
	RPS            float64
	Burst          int
	IPWhitelist    []string
	AdminKeys      map[string]struct{}
}
