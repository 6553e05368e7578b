package cli

import (
	"fmt"

	"resumelift/internal/config"
	"resumelift/internal/errors"
	"resumelift/internal/server"
	"resumelift/internal/session"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for ATS analysis, optimization and cover letters",
	Long: `Start an HTTP server that provides REST API endpoints for the resume
optimization workflows. Uploaded resumes may be PDF or DOCX.

Available endpoints:
- POST /analyze-ats: Analyze and optimize a resume for a job description
- POST /generate-cover-letter: Generate a tailored cover letter
- POST /regenerate-ats/{id}: Re-run the ATS workflow for a session
- POST /regenerate-cover-letter/{id}: Re-run cover letter generation for a session
- GET /preview/{doctype}/{id}: Preview a generated document with score comparison
- GET /download/{filetype}/{doctype}/{id}: Download a document as PDF or DOCX
- GET /health: Health check endpoint
- GET /stats: Server statistics and rate limiting info

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server
- Use --cert-file and --key-file for TLS certificates`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
	serveCmd.Flags().String("session-backend", "", "Session storage backend: file, memory (overrides config)")
}

// applyServeFlags copies any explicitly set flags over the loaded config.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	override := func(flagName string, target *string) {
		if cmd.Flags().Changed(flagName) {
			*target, _ = cmd.Flags().GetString(flagName)
		}
	}

	override("port", &cfg.Server.Port)
	override("host", &cfg.Server.Host)
	override("tls-mode", &cfg.Server.TLS.Mode)
	override("cert-file", &cfg.Server.TLS.CertFile)
	override("key-file", &cfg.Server.TLS.KeyFile)
	override("session-backend", &cfg.Session.Backend)
}

func newSessionStore(cfg *config.Config, logger *errors.Logger) (session.Store, error) {
	switch cfg.Session.Backend {
	case "memory":
		return session.NewMemoryStore(), nil
	default:
		return session.NewFileStore(cfg.Session.StorageRoot, logger)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	applyServeFlags(cmd, cfg)

	// Re-validate after applying overrides
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid server configuration: %w", err)
	}

	store, err := newSessionStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create session store: %w", err)
	}

	logger.Info("Session storage configured",
		"backend", cfg.Session.Backend,
		"storage_root", cfg.Session.StorageRoot)

	serverCfg := server.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        Version,
		TLSConfig:      cfg.Server.TLS,
		APIKeys:        cfg.Server.APIKeys,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: cfg.App.MaxUploadSize,
		RateLimit:      &cfg.Server.RateLimit,
	}
	return server.NewServer(cfg, serverCfg, store, logger).Start()
}
