// Package server compone plugins en un unico arbol de API.
package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"authkit/internal/api"
	"authkit/internal/repository"
)

// RouteFunc agrega rutas HTTP propias de un plugin.
type RouteFunc func(r gin.IRouter)

// Server es el AuthServer: cada plugin es un Server y el servidor principal
// los combina con RegisterPlugins.
type Server struct {
	logger *zap.Logger

	mu          sync.RWMutex
	api         api.Tree
	middlewares []api.Middleware
	routes      []RouteFunc
}

func New(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{logger: logger, api: api.Tree{}}
}

// RegisterAPI merges the builder's handlers into the server tree.
func (s *Server) RegisterAPI(b *api.Builder) *Server {
	if b == nil {
		return s
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.api = api.Merge(s.api, b.Build())
	return s
}

// RegisterMiddleware appends middlewares; the first one registered is the
// outermost.
func (s *Server) RegisterMiddleware(mws ...api.Middleware) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, mw := range mws {
		if mw != nil {
			s.middlewares = append(s.middlewares, mw)
		}
	}
	return s
}

func (s *Server) RegisterRoutes(routes ...RouteFunc) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range routes {
		if r != nil {
			s.routes = append(s.routes, r)
		}
	}
	return s
}

// RegisterPlugins merges each plugin's API, middlewares and routes in
// order. Later plugins win on conflicting handler paths.
func (s *Server) RegisterPlugins(plugins ...*Server) *Server {
	for _, p := range plugins {
		if p == nil || p == s {
			continue
		}
		p.mu.RLock()
		tree := p.api.Clone()
		mws := append([]api.Middleware(nil), p.middlewares...)
		routes := append([]RouteFunc(nil), p.routes...)
		p.mu.RUnlock()

		s.mu.Lock()
		s.api = api.Merge(s.api, tree)
		s.middlewares = append(s.middlewares, mws...)
		s.routes = append(s.routes, routes...)
		s.mu.Unlock()
	}
	return s
}

// API devuelve una copia del arbol combinado.
func (s *Server) API() api.Tree {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.api.Clone()
}

// Routes devuelve las rutas registradas por los plugins.
func (s *Server) Routes() []RouteFunc {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]RouteFunc(nil), s.routes...)
}

// Call resolves path and invokes the handler through the middleware chain.
func (s *Server) Call(ctx context.Context, path string, payload json.RawMessage) (any, error) {
	s.mu.RLock()
	h, ok := s.api.Lookup(path)
	mws := s.middlewares
	s.mu.RUnlock()
	if !ok {
		return nil, repository.Errorf(repository.CodeNotFound, "api %q not registered", path)
	}
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](path, h)
	}
	return h(ctx, payload)
}

// Logging registra cada llamada con su duracion y codigo de error.
func Logging(logger *zap.Logger) api.Middleware {
	return func(path string, next api.Handler) api.Handler {
		return func(ctx context.Context, payload json.RawMessage) (any, error) {
			start := time.Now()
			resp, err := next(ctx, payload)
			fields := []zap.Field{
				zap.String("api", path),
				zap.Duration("dur", time.Since(start)),
			}
			if err != nil {
				fields = append(fields, zap.String("code", string(repository.CodeOf(err))), zap.Error(err))
				logger.Warn("api call failed", fields...)
				return resp, err
			}
			logger.Debug("api call", fields...)
			return resp, nil
		}
	}
}

// Recover turns a handler panic into an unknown error.
func Recover(logger *zap.Logger) api.Middleware {
	return func(path string, next api.Handler) api.Handler {
		return func(ctx context.Context, payload json.RawMessage) (resp any, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("panic", zap.Any("reason", r), zap.String("api", path))
					err = repository.Errorf(repository.CodeUnknown, "internal error")
				}
			}()
			return next(ctx, payload)
		}
	}
}
