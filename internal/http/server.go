package http

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/potatoreg/internal/observability/logger"
)

// Server envuelve http.Server con timeouts sanos y shutdown ordenado.
type Server struct {
	srv *http.Server
}

func NewServer(addr string, handler http.Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			// sin WriteTimeout global: las descargas de artefactos pueden ser largas
			IdleTimeout: 120 * time.Second,
		},
	}
}

// Run sirve hasta que ctx se cancele; después drena con un grace de 10s.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("http server listening", logger.String("addr", s.srv.Addr))
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}
