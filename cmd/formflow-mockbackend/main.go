// Command formflow-mockbackend serves scripted multi-step forms over the
// form step protocol so the formflow CLI and session can be exercised
// without a real backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := &cli.App{
		Name:  "formflow-mockbackend",
		Usage: "serve scripted multi-step forms",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: "127.0.0.1:8080", Usage: "listen address", EnvVars: []string{"FORMFLOW_MOCK_ADDR"}},
			&cli.StringFlag{Name: "script", Required: true, Usage: "YAML script describing the forms", EnvVars: []string{"FORMFLOW_MOCK_SCRIPT"}},
			&cli.BoolFlag{Name: "json-logs", Usage: "log as JSON"},
		},
		Action: serve,
	}
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(c *cli.Context) error {
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, nil)
	if c.Bool("json-logs") {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	}
	logger := slog.New(handler)

	raw, err := os.ReadFile(c.String("script"))
	if err != nil {
		return fmt.Errorf("mockbackend: %w", err)
	}
	script, err := ParseScript(raw)
	if err != nil {
		return err
	}
	srv, err := NewServer(c.Context, script, logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              c.String("addr"),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", httpServer.Addr), slog.Int("forms", len(script.Forms)))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-c.Context.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}
