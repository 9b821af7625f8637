package main

import (
	"time"

	"github.com/JaimeStill/cohort/internal/config"
	"github.com/JaimeStill/cohort/internal/infrastructure"
)

// Server owns the backing systems, the mounted modules and the HTTP listener.
type Server struct {
	infra *infrastructure.Infrastructure
	http  *httpServer
}

func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	modules, err := NewModules(infra, cfg)
	if err != nil {
		return nil, err
	}

	router := buildRouter(infra)
	modules.Mount(router)

	infra.Logger.Info("cohort initialized",
		"addr", cfg.Server.Addr(),
		"env", cfg.Env(),
		"executor", cfg.Executor.Kind,
		"storage", infra.Storage != nil,
		"redis", infra.Redis != nil,
	)

	return &Server{
		infra: infra,
		http:  newHTTPServer(&cfg.Server, router, infra.Logger),
	}, nil
}

// Start launches the backing systems and the listener. Startup hooks run in
// the background; their result is logged once all of them settle.
func (s *Server) Start() error {
	if err := s.infra.Start(); err != nil {
		return err
	}
	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	go s.awaitStartup()
	return nil
}

func (s *Server) awaitStartup() {
	if err := s.infra.Lifecycle.WaitForStartup(); err != nil {
		s.infra.Logger.Error("subsystem startup failed", "error", err)
		return
	}
	s.infra.Logger.Info("all subsystems ready")
}

func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown", "timeout", timeout)
	if err := s.infra.Lifecycle.Shutdown(timeout); err != nil {
		return err
	}
	s.infra.Logger.Info("cohort stopped")
	return nil
}
