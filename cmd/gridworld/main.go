package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/pixil98/go-gridworld/cmd/gridworld/command"
	"github.com/pixil98/go-service"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	app, err := service.NewApp(&command.Config{}, command.BuildWorkers)
	if err != nil {
		logger.Error("creating application", "error", err)
		os.Exit(1)
	}

	err = app.Run(context.Background())
	if err != nil {
		logger.Error("running application", "error", err)
		os.Exit(1)
	}

	logger.Info("exiting")
}
