package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifebook/pkg/model"
	"github.com/urfave/cli/v3"
)

func usersCommand() *cli.Command {
	return subcommands("users", "Manage users and the selected user",
		usersListCommand(),
		usersCreateCommand(),
		usersSelectCommand(),
		usersDeleteCommand(),
	)
}

func usersListCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "list",
		Usage: "List users; the first user is selected when none is",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, a, err := cfg.newApp(ctx, c.Root().Writer)
			if err != nil {
				return err
			}

			users, err := a.backend.ListUsers(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to list users")
			}

			selected, err := a.store.AutoSelect(ctx, users)
			if err != nil {
				return goerr.Wrap(err, "failed to select user")
			}

			a.render.Users(users, selected)
			return nil
		},
	}
}

func usersCreateCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "create",
		Usage:     "Create a user and select it",
		ArgsUsage: "[name]",
		Flags:     globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, a, err := cfg.newApp(ctx, c.Root().Writer)
			if err != nil {
				return err
			}

			user, err := a.store.CreateAndSelect(ctx, a.backend, c.Args().First())
			if err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "Created and selected user %s\n", user.ID)
			return nil
		},
	}
}

func usersSelectCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "select",
		Usage:     "Select the user other pages are scoped to",
		ArgsUsage: "<user-id>",
		Flags:     globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			id, err := argID(c, 0, "user-id")
			if err != nil {
				return err
			}

			ctx, a, err := cfg.newApp(ctx, c.Root().Writer)
			if err != nil {
				return err
			}

			user, err := a.backend.GetUser(ctx, model.UserID(id))
			if err != nil {
				return goerr.Wrap(err, "failed to get user", goerr.V("user_id", id))
			}

			if err := a.store.Set(ctx, user.ID); err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "Selected user %s\n", user.ID)
			return nil
		},
	}
}

func usersDeleteCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a user",
		ArgsUsage: "<user-id>",
		Flags:     globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			id, err := argID(c, 0, "user-id")
			if err != nil {
				return err
			}

			ctx, a, err := cfg.newApp(ctx, c.Root().Writer)
			if err != nil {
				return err
			}

			if err := a.backend.DeleteUser(ctx, model.UserID(id)); err != nil {
				return goerr.Wrap(err, "failed to delete user", goerr.V("user_id", id))
			}

			if selected, ok := a.store.Get(); ok && selected == model.UserID(id) {
				if err := a.store.Clear(ctx); err != nil {
					return err
				}
			}

			fmt.Fprintf(c.Root().Writer, "Deleted user %d\n", id)
			return nil
		},
	}
}
