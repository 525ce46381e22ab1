package cli

import (
	"context"

	"github.com/m-mizutani/lifebook/pkg/model"
	"github.com/m-mizutani/lifebook/pkg/usecase/page"
	"github.com/urfave/cli/v3"
)

func personsCommand() *cli.Command {
	return subcommands("persons", "Browse and merge detected persons",
		personsListCommand(),
		personsShowCommand(),
		personsMergeCommand(),
	)
}

func personsListCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "list",
		Usage: "List persons of the selected user per pipeline version",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, a, err := cfg.newApp(ctx, c.Root().Writer)
			if err != nil {
				return err
			}

			p := page.NewPersons(a.store, a.backend, page.WithVersions(cfg.versions()))
			err = p.Reload(ctx)
			a.render.Persons(p.Snapshot())
			return err
		},
	}
}

func personsShowCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "show",
		Usage:     "Show a person and the memories mentioning them",
		ArgsUsage: "<person-id>",
		Flags:     globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			id, err := argID(c, 0, "person-id")
			if err != nil {
				return err
			}

			ctx, a, err := cfg.newApp(ctx, c.Root().Writer)
			if err != nil {
				return err
			}

			p := page.NewPersons(a.store, a.backend)
			err = p.Select(ctx, model.PersonID(id))
			a.render.PersonDetail(p.Detail())
			return err
		},
	}
}

func personsMergeCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "merge",
		Usage:     "Merge the source person into the target person",
		ArgsUsage: "<source-id> <target-id>",
		Flags:     globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			source, err := argID(c, 0, "source-id")
			if err != nil {
				return err
			}
			target, err := argID(c, 1, "target-id")
			if err != nil {
				return err
			}

			ctx, a, err := cfg.newApp(ctx, c.Root().Writer)
			if err != nil {
				return err
			}

			p := page.NewPersons(a.store, a.backend, page.WithVersions(cfg.versions()))
			result, err := p.Merge(ctx, model.PersonID(source), model.PersonID(target))
			if err != nil {
				return err
			}

			a.render.MergeResult(result)
			a.render.Persons(p.Snapshot())
			return nil
		},
	}
}
