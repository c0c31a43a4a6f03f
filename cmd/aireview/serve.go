package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/drewdunne/aireview/internal/analysis"
	"github.com/drewdunne/aireview/internal/dispatch"
	"github.com/drewdunne/aireview/internal/llm"
	"github.com/drewdunne/aireview/internal/logging"
	"github.com/drewdunne/aireview/internal/orchestrator"
	"github.com/drewdunne/aireview/internal/provider/gitlab"
	"github.com/drewdunne/aireview/internal/server"
	"github.com/drewdunne/aireview/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook and API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		logger, err := logging.New(cfg.Logging, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer logger.Close()

		db, err := store.Open(cmd.Context(), cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := store.Migrate(db); err != nil {
			return err
		}
		reviews := store.New(db, logger.Logger)

		gitlabOpts := []gitlab.Option{
			gitlab.WithTimeout(seconds(cfg.GitLab.TimeoutSeconds)),
			gitlab.WithCacheSize(int64(cfg.GitLab.CacheMB) << 20),
		}
		if cfg.GitLab.BaseURL != "" {
			gitlabOpts = append(gitlabOpts, gitlab.WithBaseURL(cfg.GitLab.BaseURL))
		}
		gl, err := gitlab.New(cfg.GitLab.Token, gitlabOpts...)
		if err != nil {
			return err
		}

		retry := llm.DefaultRetryConfig()
		retry.MaxRetries = cfg.LLM.MaxRetries
		geminiOpts := []llm.GeminiOption{
			llm.WithModel(cfg.LLM.Model),
			llm.WithTimeout(seconds(cfg.LLM.TimeoutSeconds)),
			llm.WithRetry(retry),
		}
		if cfg.LLM.BaseURL != "" {
			geminiOpts = append(geminiOpts, llm.WithBaseURL(cfg.LLM.BaseURL))
		}
		oracle, err := llm.NewGemini(cfg.LLM.APIKey, geminiOpts...)
		if err != nil {
			return err
		}

		engine := analysis.NewEngine(oracle,
			analysis.WithMaxFiles(cfg.LLM.MaxFiles),
			analysis.WithLogger(logger.Logger),
		)
		pool := dispatch.New(dispatch.Config{MaxConcurrent: cfg.Dispatch.MaxConcurrent}, logger.Logger)

		orch := orchestrator.New(reviews, gl, engine, pool,
			orchestrator.Config{DashboardURL: cfg.Dashboard.BaseURL},
			logger.Logger,
		)

		srv := server.New(cfg.Server, server.Deps{
			Store:         reviews,
			Pipeline:      orch,
			Dispatcher:    pool,
			WebhookSecret: cfg.GitLab.WebhookSecret,
			Logger:        logger.Logger,
		})

		logger.Info("starting aireview",
			"version", version,
			"database", db.Driver(),
			"gitlab", cfg.GitLab.BaseURL,
			"model", cfg.LLM.Model,
			"max_concurrent", cfg.Dispatch.MaxConcurrent,
		)
		return srv.ListenAndServeWithShutdown()
	},
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
