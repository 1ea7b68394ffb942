// Command formflow compiles, lints and checks form schemas, and drives
// multi-step forms against a backend from the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"

	"github.com/goliatone/go-formflow/pkg/prompt"
)

type cliEnv struct {
	cfg    Config
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
	// driver is nil outside tests; run falls back to the survey driver.
	driver prompt.Driver
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := newApp(&cliEnv{stdout: os.Stdout, stderr: os.Stderr})
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var coder cli.ExitCoder
		if errors.As(err, &coder) {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

func newApp(e *cliEnv) *cli.App {
	return &cli.App{
		Name:      "formflow",
		Usage:     "compile JSON Schema and OpenAPI documents into forms",
		Writer:    e.stdout,
		ErrWriter: e.stderr,
		// Exit codes are applied in main so the app can run inside tests.
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "configuration file",
				Value:   defaultConfigFile,
			},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: "log-format", Usage: "text or json"},
		},
		Before: func(c *cli.Context) error {
			cfg, err := loadConfig(c.String("config"), c.IsSet("config"))
			if err != nil {
				return err
			}
			if c.IsSet("log-level") {
				cfg.Log.Level = c.String("log-level")
			}
			if c.IsSet("log-format") {
				cfg.Log.Format = c.String("log-format")
			}
			logger, err := newLogger(cfg.Log, e.stderr)
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.logger = logger
			return nil
		},
		Commands: []*cli.Command{
			compileCommand(e),
			operationsCommand(e),
			lintCommand(e),
			checkCommand(e),
			runCommand(e),
		},
	}
}
