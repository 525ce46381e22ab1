package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

func homeCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "home",
		Usage: "Show the selected user and the available pages",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			_, a, err := cfg.newApp(ctx, c.Root().Writer)
			if err != nil {
				return err
			}

			id, ok := a.store.Get()
			a.render.Home(id, ok)
			return nil
		},
	}
}
