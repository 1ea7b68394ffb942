package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/goliatone/go-formflow"
	"github.com/goliatone/go-formflow/pkg/prompt"
	"github.com/goliatone/go-formflow/pkg/session"
	"github.com/goliatone/go-formflow/pkg/transport/httptransport"
)

var errGaveUp = errors.New("run: backend unavailable")

func runCommand(e *cliEnv) *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "fill a multi-step form served by a backend",
		ArgsUsage: "<form key>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "backend", Usage: "backend base URL (overrides backend.url)"},
			&cli.StringSliceFlag{Name: "header", Usage: "extra request header, \"Name: value\""},
			&cli.BoolFlag{Name: "no-validate", Usage: "skip client side validation before submitting"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("run: expected exactly one form key", 2)
			}
			sess, err := e.newSession(c)
			if err != nil {
				return err
			}
			driver := e.driver
			if driver == nil {
				driver = prompt.NewSurveyDriver(e.stdout)
			}
			filler := prompt.NewFiller(driver, prompt.WithLogger(e.logger))

			if _, err := runWizard(c.Context, sess, filler, driver); err != nil {
				if errors.Is(err, prompt.ErrAborted) {
					return cli.Exit("aborted", 130)
				}
				return err
			}
			fmt.Fprintln(e.stdout, "Form submitted.")
			return nil
		},
	}
}

func (e *cliEnv) newSession(c *cli.Context) (*session.Session, error) {
	backend := e.cfg.Backend.URL
	if c.IsSet("backend") {
		backend = c.String("backend")
	}
	if backend == "" {
		return nil, cli.Exit("run: backend URL is required (--backend, backend.url or FORMFLOW_BACKEND_URL)", 2)
	}

	options := []httptransport.Option{
		httptransport.WithLogger(e.logger),
		httptransport.WithHTTPClient(&http.Client{Timeout: e.cfg.Backend.Timeout}),
	}
	headers := make(map[string]string, len(e.cfg.Backend.Headers))
	for name, value := range e.cfg.Backend.Headers {
		headers[name] = value
	}
	for _, header := range c.StringSlice("header") {
		name, value, ok := strings.Cut(header, ":")
		if !ok {
			return nil, cli.Exit(fmt.Sprintf("run: malformed header %q", header), 2)
		}
		headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	for name, value := range headers {
		options = append(options, httptransport.WithHeader(name, value))
	}

	client, err := httptransport.New(backend, options...)
	if err != nil {
		return nil, err
	}
	return formflow.NewSession(c.Args().First(), client,
		session.WithLabelSource(client),
		session.WithLogger(e.logger),
		session.WithClientValidation(e.cfg.Validate && !c.Bool("no-validate")),
	)
}

// runWizard drives sess to fulfilment, asking for each step's values with
// filler and offering to go back or retry where the session allows it.
func runWizard(ctx context.Context, sess *session.Session, filler *prompt.Filler, driver prompt.Driver) (session.Snapshot, error) {
	snap, err := sess.Start(ctx)
	if err != nil {
		return snap, err
	}

	for {
		for _, message := range snap.FormErrors {
			if err := driver.Info(ctx, message); err != nil {
				return snap, err
			}
		}

		switch snap.State {
		case session.StateFulfilled:
			return snap, nil
		case session.StateAwaitingSchema:
			retry, err := driver.Confirm(ctx, prompt.ConfirmConfig{Message: "Retry?", Default: true})
			if err != nil {
				return snap, err
			}
			if !retry {
				return snap, errGaveUp
			}
			if snap, err = sess.Start(ctx); err != nil {
				return snap, err
			}
			continue
		}

		if snap.Step > 0 {
			back, err := driver.Confirm(ctx, prompt.ConfirmConfig{Message: "Go back to the previous step?"})
			if err != nil {
				return snap, err
			}
			if back {
				if snap, err = sess.Back(ctx); err != nil {
					return snap, err
				}
				continue
			}
		}

		values, err := filler.Fill(ctx, snap.Fields, snap.Values, fieldMessages(snap.FieldErrors))
		if err != nil {
			return snap, err
		}
		keys := make([]string, 0, len(values))
		for key := range values {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if err := sess.SetValue(key, values[key]); err != nil {
				return snap, err
			}
		}

		snap, err = sess.Submit(ctx)
		if err != nil && !errors.Is(err, session.ErrInvalid) {
			return snap, err
		}
	}
}

func fieldMessages(errs map[string]session.FieldError) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	out := make(map[string]string, len(errs))
	for id, fieldErr := range errs {
		out[id] = fieldErr.Message
	}
	return out
}
