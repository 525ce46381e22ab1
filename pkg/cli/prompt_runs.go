package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifebook/pkg/model"
	"github.com/m-mizutani/lifebook/pkg/usecase/export"
	"github.com/m-mizutani/lifebook/pkg/usecase/page"
	"github.com/urfave/cli/v3"
)

func promptRunsCommand() *cli.Command {
	return subcommands("prompt-runs", "Inspect raw prompt and response logs",
		promptRunsListCommand(),
		promptRunsShowCommand(),
		promptRunsExportCommand(),
	)
}

// parseOK converts the --parse-ok flag; an empty value means no filter
func parseOK(s string) (*bool, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid parse-ok value", goerr.V("value", s))
	}
	return &v, nil
}

func promptRunsListCommand() *cli.Command {
	var (
		cfg        config
		sessionID  int64
		promptName string
		parseOKStr string
		modelName  string
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "session",
			Aliases:     []string{"s"},
			Usage:       "Only runs of this session",
			Destination: &sessionID,
		},
		&cli.StringFlag{
			Name:        "prompt",
			Aliases:     []string{"p"},
			Usage:       "Only runs of this prompt name",
			Destination: &promptName,
		},
		&cli.StringFlag{
			Name:        "parse-ok",
			Usage:       "Only runs whose output parsed (true) or failed to parse (false)",
			Destination: &parseOKStr,
		},
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "Only runs of this model",
			Destination: &modelName,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List prompt runs of the selected user",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ok, err := parseOK(parseOKStr)
			if err != nil {
				return err
			}

			ctx, a, err := cfg.newApp(ctx, c.Root().Writer)
			if err != nil {
				return err
			}

			p := page.NewPromptRuns(a.store, a.backend)
			err = p.SetFilter(ctx, page.PromptRunFilter{
				SessionID:  model.SessionID(sessionID),
				PromptName: promptName,
				ParseOK:    ok,
				Model:      modelName,
			})
			a.render.PromptRuns(p.Snapshot())
			return err
		},
	}
}

func promptRunsShowCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "show",
		Usage:     "Show a prompt run with its prompt and structured output",
		ArgsUsage: "<prompt-run-id>",
		Flags:     globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			id, err := argID(c, 0, "prompt-run-id")
			if err != nil {
				return err
			}

			ctx, a, err := cfg.newApp(ctx, c.Root().Writer)
			if err != nil {
				return err
			}

			p := page.NewPromptRuns(a.store, a.backend)
			if err := p.Select(ctx, model.PromptRunID(id)); err != nil {
				return err
			}
			a.render.PromptRun(p.Detail().Data)
			return nil
		},
	}
}

func promptRunsExportCommand() *cli.Command {
	var (
		cfg        config
		sessionID  int64
		promptName string
		bucket     string
		prefix     string
		dir        string
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "session",
			Aliases:     []string{"s"},
			Usage:       "Export runs of this session instead of the selected user",
			Destination: &sessionID,
		},
		&cli.StringFlag{
			Name:        "prompt",
			Aliases:     []string{"p"},
			Usage:       "Only runs of this prompt name",
			Destination: &promptName,
		},
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Cloud Storage bucket to write the archive to",
			Sources:     cli.EnvVars("LIFEBOOK_EXPORT_BUCKET"),
			Destination: &bucket,
		},
		&cli.StringFlag{
			Name:        "prefix",
			Usage:       "Object name prefix in the bucket",
			Sources:     cli.EnvVars("LIFEBOOK_EXPORT_PREFIX"),
			Destination: &prefix,
		},
		&cli.StringFlag{
			Name:        "dir",
			Usage:       "Local directory to write the archive to when no bucket is set",
			Value:       ".",
			Destination: &dir,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "export",
		Usage: "Archive prompt runs as JSON lines",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, a, err := cfg.newApp(ctx, c.Root().Writer)
			if err != nil {
				return err
			}

			input := export.Input{
				SessionID:  model.SessionID(sessionID),
				PromptName: promptName,
			}
			if input.SessionID == 0 {
				userID, ok := a.store.Get()
				if !ok {
					return page.ErrNoUserSelected
				}
				input.UserID = userID
			}

			storage, err := cfg.newStorage(ctx, bucket, prefix, dir)
			if err != nil {
				return err
			}

			result, err := export.New(a.backend, storage).PromptRuns(ctx, input)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "Exported %d prompt runs to %s\n", result.Count, result.Location)
			return nil
		},
	}
}
