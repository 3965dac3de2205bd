// Package route maps the terminal's three screens to URL-style paths.
package route

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Name identifies a screen.
type Name string

const (
	Login  Name = "login"
	Broker Name = "broker"
	Admin  Name = "admin"
)

// Match is a resolved path.
type Match struct {
	Name   Name
	Params map[string]string
}

var patterns = map[string]Name{
	"/":            Login,
	"/broker/{id}": Broker,
	"/admin":       Admin,
}

var mux = newMux()

func newMux() *chi.Mux {
	m := chi.NewRouter()
	noop := func(http.ResponseWriter, *http.Request) {}
	for p := range patterns {
		m.Get(p, noop)
	}
	return m
}

// Resolve matches path against the known routes.
func Resolve(path string) (Match, error) {
	if u, err := url.Parse(path); err == nil && u.EscapedPath() != "" {
		path = u.EscapedPath()
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}

	rctx := chi.NewRouteContext()
	if !mux.Match(rctx, http.MethodGet, path) {
		return Match{}, fmt.Errorf("route: no route for %q", path)
	}
	name, ok := patterns[rctx.RoutePattern()]
	if !ok {
		return Match{}, fmt.Errorf("route: no route for %q", path)
	}

	m := Match{Name: name, Params: map[string]string{}}
	for i, k := range rctx.URLParams.Keys {
		v, err := url.PathUnescape(rctx.URLParams.Values[i])
		if err != nil {
			return Match{}, fmt.Errorf("route: bad %s in %q: %w", k, path, err)
		}
		if v == "" {
			return Match{}, fmt.Errorf("route: empty %s in %q", k, path)
		}
		m.Params[k] = v
	}
	return m, nil
}

// Path builds the path for a route.
func Path(name Name, params map[string]string) (string, error) {
	switch name {
	case Login:
		return "/", nil
	case Admin:
		return "/admin", nil
	case Broker:
		id := params["id"]
		if id == "" {
			return "", fmt.Errorf("route: broker path needs an id")
		}
		return "/broker/" + url.PathEscape(id), nil
	default:
		return "", fmt.Errorf("route: unknown route %q", name)
	}
}

// BrokerPath is Path(Broker, {"id": id}) for ids known to be non-empty.
func BrokerPath(id string) string {
	return "/broker/" + url.PathEscape(id)
}
