package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifebook/pkg/model"
	"github.com/m-mizutani/lifebook/pkg/usecase/page"
	"github.com/urfave/cli/v3"
)

func sessionsCommand() *cli.Command {
	return subcommands("sessions", "Browse sessions and submit messages",
		sessionsListCommand(),
		sessionsCreateCommand(),
		sessionsShowCommand(),
		sessionsSendCommand(),
	)
}

func sessionsListCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "list",
		Usage: "List sessions of the selected user",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, a, err := cfg.newApp(ctx, c.Root().Writer)
			if err != nil {
				return err
			}

			p := page.NewSessions(a.store, a.backend)
			err = p.Reload(ctx)
			a.render.Sessions(p.Snapshot())
			return err
		},
	}
}

func sessionsCreateCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "create",
		Usage: "Create a session for the selected user",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, a, err := cfg.newApp(ctx, c.Root().Writer)
			if err != nil {
				return err
			}

			session, err := page.NewSessions(a.store, a.backend).Create(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "Created session %s for user %s\n", session.ID, session.UserID)
			return nil
		},
	}
}

func sessionsShowCommand() *cli.Command {
	var (
		cfg    config
		expand bool
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "expand",
			Aliases:     []string{"e"},
			Usage:       "Expand every prompt run",
			Destination: &expand,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:      "show",
		Usage:     "Show the message timeline of a session",
		ArgsUsage: "<session-id>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			id, err := argID(c, 0, "session-id")
			if err != nil {
				return err
			}

			ctx, a, err := cfg.newApp(ctx, c.Root().Writer)
			if err != nil {
				return err
			}

			p := page.NewSessionDetail(a.backend, model.SessionID(id))
			err = p.Reload(ctx)
			if expand {
				expandAll(p)
			}
			a.render.SessionDetail(p)
			return err
		},
	}
}

func sessionsSendCommand() *cli.Command {
	var cfg config

	flags := append(messageFlags(&cfg), globalFlags(&cfg)...)

	return &cli.Command{
		Name:      "send",
		Usage:     "Submit a message to a session and show the pipeline result",
		ArgsUsage: "<session-id> <text>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			id, err := argID(c, 0, "session-id")
			if err != nil {
				return err
			}
			text := strings.Join(c.Args().Slice()[1:], " ")

			ctx, a, err := cfg.newApp(ctx, c.Root().Writer)
			if err != nil {
				return err
			}

			p := page.NewSessionDetail(a.backend, model.SessionID(id), page.WithMessageOptions(cfg.messageOptions()))

			stop := startSpinner("Processing...")
			result, err := p.Submit(ctx, text)
			stop()
			if err != nil {
				return goerr.Wrap(err, "failed to submit message", goerr.V("session_id", id))
			}

			a.render.ProcessResult(result)
			return nil
		},
	}
}

// expandAll expands every prompt run currently on the timeline
func expandAll(p *page.SessionDetail) {
	for _, entry := range p.Snapshot().Data {
		for _, run := range entry.Runs {
			if !p.Expanded(run.ID) {
				p.Toggle(run.ID)
			}
		}
	}
}
