// Command jobctl operates import and export jobs from a shell: create jobs,
// run pipelines synchronously, and inspect status without the HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/importexport/internal/application"
	"github.com/JonMunkholm/importexport/internal/config"
	"github.com/JonMunkholm/importexport/internal/logging"
	"github.com/joho/godotenv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(openApplication)
	if err := root.ExecuteContext(ctx); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

// openApplication wires the same runtime as the server, using the same
// environment and .env file.
func openApplication(ctx context.Context) (*session, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	app, err := application.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("starting application: %w", err)
	}
	app.Queue.Start(ctx, app.Service)

	return &session{
		service: app.Service,
		queue:   app.Queue,
		siteURL: cfg.Server.SiteURL,
		close:   app.Close,
	}, nil
}
