package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formflow"
	"github.com/goliatone/go-formflow/pkg/jsonschema"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/openapi"
	"github.com/goliatone/go-formflow/pkg/orchestrator"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/validation"
)

var sourceFlags = []cli.Flag{
	&cli.StringFlag{Name: "operation", Usage: "treat the document as OpenAPI and compile this operation's request body"},
	&cli.StringFlag{Name: "prefix", Usage: "prefix prepended to every field id"},
	&cli.StringFlag{Name: "labels", Usage: "YAML or JSON label file ({labels: {...}, data: {...}})"},
	&cli.StringFlag{Name: "preset", Usage: "YAML or JSON preset file patching compiled fields"},
	&cli.BoolFlag{Name: "external-refs", Usage: "allow $ref to other files or URLs"},
}

func compileCommand(e *cliEnv) *cli.Command {
	return &cli.Command{
		Name:      "compile",
		Usage:     "compile a schema and print the field tree",
		ArgsUsage: "<schema>",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "yaml or json"},
			&cli.BoolFlag{Name: "schema", Usage: "print the resolved schema instead of the fields"},
		}, sourceFlags...),
		Action: func(c *cli.Context) error {
			form, err := e.compile(c)
			if err != nil {
				return err
			}
			for _, warning := range form.Warnings {
				e.logger.Warn(warning.Message, "path", warning.Path, "code", string(warning.Code))
			}
			var out any = form.Fields
			if c.Bool("schema") {
				out = form.Schema
			}
			return e.write(c, out)
		},
	}
}

func operationsCommand(e *cliEnv) *cli.Command {
	return &cli.Command{
		Name:      "operations",
		Usage:     "list the OpenAPI operations that accept a request body",
		ArgsUsage: "<openapi document>",
		Action: func(c *cli.Context) error {
			src, err := sourceArg(c)
			if err != nil {
				return err
			}
			doc, err := e.loader().Load(c.Context, src)
			if err != nil {
				return err
			}
			operations, err := openapi.NewExtractor(openapi.Options{}).Operations(c.Context, doc)
			if err != nil {
				return err
			}
			ids := make([]string, 0, len(operations))
			for id := range operations {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				op := operations[id]
				fmt.Fprintf(e.stdout, "%s\t%s %s\t%s\n", id, op.Method, op.Path, op.Summary)
			}
			return nil
		},
	}
}

func lintCommand(e *cliEnv) *cli.Command {
	return &cli.Command{
		Name:      "lint",
		Usage:     "report schema problems that would stop a faithful compilation",
		ArgsUsage: "<schema>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "external-refs", Usage: "allow $ref to other files or URLs"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return cli.Exit("lint: at least one schema path is required", 2)
			}
			failed := false
			for _, path := range c.Args().Slice() {
				raw, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("lint: %w", err)
				}
				result := validation.LintSchema(c.Context, schema.SourceFromFile(path), raw, validation.JSONSchemaValidationOptions{
					Loader:          e.loader(),
					ResolverOptions: jsonschema.ResolveOptions{AllowExternalRefs: c.Bool("external-refs")},
				})
				for _, warning := range result.Warnings {
					fmt.Fprintf(e.stderr, "%s: warning: %s\n", path, describeIssue(warning))
				}
				for _, issue := range result.Issues {
					fmt.Fprintf(e.stderr, "%s: %s\n", path, describeIssue(issue))
				}
				failed = failed || !result.Valid
			}
			if failed {
				return cli.Exit("lint: schema problems found", 1)
			}
			return nil
		},
	}
}

func checkCommand(e *cliEnv) *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "validate a values file against a compiled schema",
		ArgsUsage: "<schema>",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "values", Usage: "YAML or JSON values file", Required: true},
		}, sourceFlags...),
		Action: func(c *cli.Context) error {
			form, err := e.compile(c)
			if err != nil {
				return err
			}
			var values map[string]any
			if err := decodeFile(c.String("values"), &values); err != nil {
				return err
			}
			errs := orchestrator.New().Validate(form, values)
			if len(errs) == 0 {
				fmt.Fprintln(e.stdout, "ok")
				return nil
			}
			ids := make([]string, 0, len(errs))
			for id := range errs {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				fmt.Fprintf(e.stdout, "%s: %s\n", displayID(id), errs[id])
			}
			return cli.Exit(fmt.Sprintf("check: %d invalid field(s)", len(errs)), 1)
		},
	}
}

func (e *cliEnv) loader() jsonschema.Loader {
	return formflow.NewLoader(jsonschema.WithHTTPFallback(e.cfg.Backend.Timeout))
}

func (e *cliEnv) compile(c *cli.Context) (orchestrator.Form, error) {
	src, err := sourceArg(c)
	if err != nil {
		return orchestrator.Form{}, err
	}

	options := []orchestrator.Option{
		orchestrator.WithLoader(e.loader()),
		orchestrator.WithLogger(e.logger),
		orchestrator.WithResolveOptions(jsonschema.ResolveOptions{AllowExternalRefs: c.Bool("external-refs")}),
	}
	if path := c.String("preset"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return orchestrator.Form{}, fmt.Errorf("preset: %w", err)
		}
		preset, err := orchestrator.NewPresetTransformer(raw)
		if err != nil {
			return orchestrator.Form{}, err
		}
		options = append(options, orchestrator.WithTransformers(preset))
	}

	req := orchestrator.Request{
		Source:      src,
		OperationID: c.String("operation"),
		Prefix:      c.String("prefix"),
	}
	if path := c.String("labels"); path != "" {
		var labels model.Labels
		if err := decodeFile(path, &labels); err != nil {
			return orchestrator.Form{}, err
		}
		req.Labels = labels
	}
	return formflow.NewOrchestrator(options...).Compile(c.Context, req)
}

func (e *cliEnv) write(c *cli.Context, value any) error {
	format := c.String("output")
	if format == "" {
		format = e.cfg.Output
	}
	// Round trip through JSON so both formats use the JSON field names.
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	switch strings.ToLower(format) {
	case "json":
		var indented any
		if err := json.Unmarshal(raw, &indented); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		out, err := json.MarshalIndent(indented, "", "  ")
		if err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		_, err = fmt.Fprintln(e.stdout, string(out))
		return err
	case "yaml", "yml":
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		enc := yaml.NewEncoder(e.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		return enc.Close()
	default:
		return cli.Exit(fmt.Sprintf("unsupported output format %q", format), 2)
	}
}

func sourceArg(c *cli.Context) (schema.Source, error) {
	if c.NArg() != 1 {
		return nil, cli.Exit(fmt.Sprintf("%s: expected exactly one document argument", c.Command.Name), 2)
	}
	return schema.ParseSource(c.Args().First())
}

// decodeFile reads a YAML or JSON file into target using JSON field names.
func decodeFile(path string, target any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	node, err := jsonschema.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	encoded, err := json.Marshal(node)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := json.Unmarshal(encoded, target); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func describeIssue(issue validation.SchemaIssue) string {
	location := issue.Path
	if issue.Field != "" {
		location = fmt.Sprintf("%s (%s)", issue.Field, issue.Path)
	}
	if location == "" {
		return issue.Message
	}
	return location + " -> " + issue.Message
}

func displayID(id string) string {
	if id == "" {
		return "(form)"
	}
	return id
}
