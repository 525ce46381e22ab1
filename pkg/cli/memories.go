package cli

import (
	"context"

	"github.com/m-mizutani/lifebook/pkg/model"
	"github.com/m-mizutani/lifebook/pkg/usecase/page"
	"github.com/urfave/cli/v3"
)

func memoriesCommand() *cli.Command {
	return subcommands("memories", "Compare extracted memories across pipeline versions",
		memoriesListCommand(),
		memoriesShowCommand(),
	)
}

func memoriesListCommand() *cli.Command {
	var (
		cfg       config
		sessionID int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "session",
			Aliases:     []string{"s"},
			Usage:       "Only memories extracted from this session",
			Destination: &sessionID,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List memories of the selected user per pipeline version",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, a, err := cfg.newApp(ctx, c.Root().Writer)
			if err != nil {
				return err
			}

			p := page.NewMemories(a.store, a.backend, page.WithVersions(cfg.versions()))
			if sessionID > 0 {
				err = p.FilterSession(ctx, model.SessionID(sessionID))
			} else {
				err = p.Reload(ctx)
			}
			a.render.Memories(p.Snapshot())
			return err
		},
	}
}

func memoriesShowCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "show",
		Usage:     "Show a memory",
		ArgsUsage: "<memory-id>",
		Flags:     globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			id, err := argID(c, 0, "memory-id")
			if err != nil {
				return err
			}

			ctx, a, err := cfg.newApp(ctx, c.Root().Writer)
			if err != nil {
				return err
			}

			p := page.NewMemories(a.store, a.backend)
			if err := p.Select(ctx, model.MemoryID(id)); err != nil {
				return err
			}
			a.render.Memory(p.Detail().Data)
			return nil
		},
	}
}
