package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"videominer/internal/config"
)

type Server struct {
	engine *gin.Engine
	srv    *http.Server
	cfg    config.Config
	logger zerolog.Logger
}

func NewServer(cfg config.Config, svc Services, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	logger = logger.With().Str("component", "http").Logger()

	engine := newEngine(cfg.Server, svc, logger)
	return &Server{
		engine: engine,
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		cfg:    cfg,
		logger: logger,
	}
}

func newEngine(cfg config.ServerConfig, svc Services, logger zerolog.Logger) *gin.Engine {
	RegisterValidators()

	engine := gin.New()
	engine.Use(RequestLogger(logger))
	engine.Use(Recovery(logger))
	engine.Use(CORS(cfg.AllowedOrigins))
	engine.Use(Language())
	engine.Use(PinGate(cfg.AccessPin))
	engine.Use(Timeout(cfg.RequestTimeout))

	registerRoutes(engine, NewAPI(svc))
	return engine
}

// Run serves until Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info().Str("addr", s.srv.Addr).Msg("listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down")
	return s.srv.Shutdown(ctx)
}
