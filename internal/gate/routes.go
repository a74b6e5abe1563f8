package gate

import (
	"strings"

	"github.com/shopadmin/internal/session"
)

type Tier int

const (
	TierPublic Tier = iota
	TierAuthenticated
	TierAdmin
)

func (t Tier) String() string {
	switch t {
	case TierAuthenticated:
		return "authenticated"
	case TierAdmin:
		return "admin"
	default:
		return "public"
	}
}

// Check applies the tier's requirement to s.
func (t Tier) Check(s session.Snapshot) Decision {
	switch t {
	case TierAuthenticated:
		return RequireAuthenticated(s)
	case TierAdmin:
		return RequireAdmin(s)
	default:
		return allow()
	}
}

type Route struct {
	Name    string
	Pattern string
	Tier    Tier
}

// Routes lists every screen of the admin client. Order matters: literal
// segments are listed before the :id patterns they would otherwise match.
var Routes = []Route{
	{"login", "/login", TierPublic},
	{"register", "/register", TierPublic},
	{"auth-callback", "/auth/callback", TierPublic},
	{"dashboard", "/dashboard", TierAuthenticated},
	{"products", "/products", TierAuthenticated},
	{"product-create", "/products/new", TierAdmin},
	{"product-detail", "/products/:id", TierAuthenticated},
	{"product-edit", "/products/:id/edit", TierAdmin},
	{"orders", "/orders", TierAuthenticated},
	{"order-detail", "/orders/:id", TierAuthenticated},
	{"settings", "/settings", TierAdmin},
	{"profile", "/profile", TierAuthenticated},
	{"categories", "/categories", TierAdmin},
	{"category-create", "/categories/new", TierAdmin},
	{"category-edit", "/categories/:id/edit", TierAdmin},
}

// Resolve finds the route for path and the values of its :params.
func Resolve(path string) (Route, map[string]string, bool) {
	segments := split(path)
	for _, r := range Routes {
		if params, ok := match(split(r.Pattern), segments); ok {
			return r, params, true
		}
	}
	return Route{}, nil, false
}

// Decide resolves path and applies its tier. "/" redirects to the
// dashboard; unknown paths are NotFound.
func Decide(path string, s session.Snapshot) Decision {
	if len(split(path)) == 0 {
		return redirectTo(session.DashboardPath)
	}
	r, _, ok := Resolve(path)
	if !ok {
		return Decision{Outcome: NotFound}
	}
	return r.Tier.Check(s)
}

func split(path string) []string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	var out []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

func match(pattern, segments []string) (map[string]string, bool) {
	if len(pattern) != len(segments) {
		return nil, false
	}
	var params map[string]string
	for i, p := range pattern {
		if strings.HasPrefix(p, ":") {
			if params == nil {
				params = make(map[string]string)
			}
			params[p[1:]] = segments[i]
			continue
		}
		if p != segments[i] {
			return nil, false
		}
	}
	return params, true
}
