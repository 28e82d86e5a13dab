// Copyright 2025 Demandcast Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/demandcast/demandcast"
	"github.com/demandcast/demandcast/warehouse"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "demandcast",
		Usage: "Demand forecasting pipeline for retail sales data",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "annotate",
				Usage:     "Annotate source narratives and write the sentiment feature table",
				ArgsUsage: "<config-file>",
				Action:    annotateCommand,
			},
			{
				Name:      "create-features",
				Usage:     "Build the weekly sales and forecasting feature tables",
				ArgsUsage: "<config-file>",
				Action:    createFeaturesCommand,
			},
			{
				Name:      "train",
				Usage:     "Train the forecasting model on the training feature table",
				ArgsUsage: "<config-file>",
				Action:    trainCommand,
			},
			{
				Name:      "evaluate",
				Usage:     "Run the backtest queries and report evaluation metrics",
				ArgsUsage: "<config-file>",
				Action:    evaluateCommand,
			},
			{
				Name:      "runs",
				Usage:     "List recorded pipeline runs, newest first",
				ArgsUsage: "<config-file>",
				Action:    runsCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to list",
						Value: 20,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func annotateCommand(c *cli.Context) error {
	ctx := context.Background()

	configFile := c.Args().Get(0)
	if configFile == "" {
		return fmt.Errorf("config file path is required")
	}

	pipeline, err := demandcast.Open(configFile)
	if err != nil {
		return fmt.Errorf("failed to open pipeline: %w", err)
	}
	defer pipeline.Close()

	if err := pipeline.Annotate(ctx); err != nil {
		return fmt.Errorf("annotation failed: %w", err)
	}
	return nil
}

func createFeaturesCommand(c *cli.Context) error {
	ctx := context.Background()

	configFile := c.Args().Get(0)
	if configFile == "" {
		return fmt.Errorf("config file path is required")
	}

	pipeline, err := demandcast.Open(configFile)
	if err != nil {
		return fmt.Errorf("failed to open pipeline: %w", err)
	}
	defer pipeline.Close()

	if err := pipeline.CreateFeatures(ctx); err != nil {
		return fmt.Errorf("feature creation failed: %w", err)
	}
	return nil
}

func trainCommand(c *cli.Context) error {
	ctx := context.Background()

	configFile := c.Args().Get(0)
	if configFile == "" {
		return fmt.Errorf("config file path is required")
	}

	pipeline, err := demandcast.Open(configFile)
	if err != nil {
		return fmt.Errorf("failed to open pipeline: %w", err)
	}
	defer pipeline.Close()

	if err := pipeline.Train(ctx); err != nil {
		return fmt.Errorf("training failed: %w", err)
	}
	return nil
}

func evaluateCommand(c *cli.Context) error {
	ctx := context.Background()

	configFile := c.Args().Get(0)
	if configFile == "" {
		return fmt.Errorf("config file path is required")
	}

	pipeline, err := demandcast.Open(configFile)
	if err != nil {
		return fmt.Errorf("failed to open pipeline: %w", err)
	}
	defer pipeline.Close()

	if err := pipeline.Evaluate(ctx); err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}
	return nil
}

func runsCommand(c *cli.Context) error {
	configFile := c.Args().Get(0)
	if configFile == "" {
		return fmt.Errorf("config file path is required")
	}

	pipeline, err := demandcast.Open(configFile)
	if err != nil {
		return fmt.Errorf("failed to open pipeline: %w", err)
	}
	defer pipeline.Close()

	runs, err := pipeline.Runs(context.Background(), c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	printRuns(os.Stdout, runs)
	return nil
}

func printRuns(w io.Writer, runs []*warehouse.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return
	}

	for _, run := range runs {
		finished := "-"
		if !run.FinishedAt.IsZero() {
			finished = run.FinishedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s  %-15s  %-9s  %s  %s",
			run.ID,
			run.Step,
			run.Status,
			run.StartedAt.UTC().Format(time.RFC3339),
			finished,
		)
		if run.Detail != "" {
			fmt.Fprintf(w, "  %s", run.Detail)
		}
		fmt.Fprintln(w)
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
