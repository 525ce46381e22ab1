package cli

import (
	"context"

	"github.com/m-mizutani/lifebook/pkg/model"
	"github.com/m-mizutani/lifebook/pkg/usecase/page"
	"github.com/urfave/cli/v3"
)

func chaptersCommand() *cli.Command {
	return subcommands("chapters", "Browse biography chapters",
		chaptersListCommand(),
		chaptersShowCommand(),
	)
}

func chaptersListCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "list",
		Usage: "List chapters of the selected user per pipeline version",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, a, err := cfg.newApp(ctx, c.Root().Writer)
			if err != nil {
				return err
			}

			p := page.NewChapters(a.store, a.backend, page.WithVersions(cfg.versions()))
			err = p.Reload(ctx)
			a.render.Chapters(p.Snapshot())
			return err
		},
	}
}

func chaptersShowCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "show",
		Usage:     "Show a chapter with its memories and coverage",
		ArgsUsage: "<chapter-id>",
		Flags:     globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			id, err := argID(c, 0, "chapter-id")
			if err != nil {
				return err
			}

			ctx, a, err := cfg.newApp(ctx, c.Root().Writer)
			if err != nil {
				return err
			}

			p := page.NewChapters(a.store, a.backend)
			err = p.Select(ctx, model.ChapterID(id))
			a.render.ChapterDetail(p.Detail())
			return err
		},
	}
}
