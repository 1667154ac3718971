// Package serve starts the HTTP statement processing service.
package serve

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"finsight/statement-hub/cmd/root"
	"finsight/statement-hub/internal/api"
	"finsight/statement-hub/internal/classifier"
	"finsight/statement-hub/internal/docadapter"
	"finsight/statement-hub/internal/pipeline"
	"finsight/statement-hub/internal/session"
)

// Cmd represents the serve command.
var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the statement processing HTTP server",
	Long:  `Start the HTTP server that accepts statement uploads and serves session views.`,
	RunE:  serveFunc,
}

func serveFunc(cmd *cobra.Command, args []string) error {
	cfg := root.Cfg
	logger := root.Logger()

	cls, err := classifier.New(logger)
	if err != nil {
		return err
	}

	var docParser docadapter.DocumentParser = docadapter.NewTableExtractor(
		cfg.Pipeline.PageCap, cfg.Pipeline.RowCap, logger)
	if cfg.AI.Enabled {
		gemini, err := docadapter.NewGeminiParser(
			cmd.Context(), cfg.AI.APIKey, cfg.AI.Model, logger)
		if err != nil {
			return err
		}
		defer func() { _ = gemini.Close() }()
		docParser = gemini
	}

	processor := pipeline.New(cls, pipeline.Options{
		Workers:   cfg.Pipeline.Workers,
		DocParser: docParser,
	}, logger)

	sessions := session.NewStore(cfg.SessionTTL(), cfg.SessionSweepInterval(), logger)
	sessions.Start()
	defer sessions.Stop()

	server := api.New(cfg, processor, sessions, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		root.Log.Info("shutdown signal received")
		return server.Shutdown()
	}
}
