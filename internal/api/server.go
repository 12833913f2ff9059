package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"

	"couplesync/internal/config"
	"couplesync/internal/relay"
)

// TokenVerifier extracts the authenticated user id from an access token.
// *identity.Resolver satisfies it.
type TokenVerifier interface {
	UserIdFromToken(accessToken string) (string, error)
}

// Server is the relay's HTTP face: the /ws upgrade endpoint plus health and
// debug routes.
type Server struct {
	log      *log.Logger
	relay    *relay.Server
	verifier TokenVerifier
	mux      *http.Server
}

func NewServer(mux *http.ServeMux, logger *log.Logger, rs *relay.Server, verifier TokenVerifier, cfg *config.Config) *Server {
	s := &Server{
		log:      logger,
		relay:    rs,
		verifier: verifier,
	}

	mux.HandleFunc("GET /api/health", s.health)
	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	s.mux = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return s
}

func (s *Server) Start() error {
	s.log.Printf("starting relay server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down relay server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJson(s.log, w, http.StatusOK, map[string]string{"status": "ok"})
}
