package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/social-auth/auth"
	"github.com/jrsteele09/social-auth/guard"
	"github.com/jrsteele09/social-auth/internal/config"
	"github.com/jrsteele09/social-auth/kv"
	"github.com/jrsteele09/social-auth/scopes"
	"github.com/jrsteele09/social-auth/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env     string // Environment (e.g., "DEV", "PROD")
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	auth    *auth.AuthorizationService
	tokens  *token.Manager
	catalog scopes.Catalog
	backend kv.Store
}

// New wires the authorization service over repos and registers every route. backend is the
// key-value store behind the grants and sessions; it is only pinged by the health check here.
func New(cfg config.Config, repos auth.Repos, tokens *token.Manager, backend kv.Store, options ...auth.AuthorizationServiceOption) (*Server, error) {
	catalog := scopes.Default()
	options = append([]auth.AuthorizationServiceOption{auth.WithMaxSessionAge(cfg.GetMaxSessionAge())}, options...)
	authService, err := auth.NewAuthorizationService(repos, tokens, guard.New(catalog, cfg.GetBaseRole()), options...)
	if err != nil {
		return nil, errors.Wrap(err, "[Server New] failed to create authorization service")
	}

	s := &Server{
		env:     cfg.GetEnv(),
		mux:     http.NewServeMux(),
		config:  cfg,
		auth:    authService,
		tokens:  tokens,
		catalog: catalog,
		backend: backend,
	}
	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	log.Info().Msgf("[%s] %s", color+paddedMethod+ResetColor, path)
}
