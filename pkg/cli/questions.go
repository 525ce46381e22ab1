package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/lifebook/pkg/model"
	"github.com/m-mizutani/lifebook/pkg/usecase/page"
	"github.com/urfave/cli/v3"
)

func questionsCommand() *cli.Command {
	return subcommands("questions", "Review follow-up questions",
		questionsListCommand(),
		questionStatusCommand("ask", "Mark a question as asked", model.QuestionAsked),
		questionStatusCommand("dismiss", "Dismiss a question", model.QuestionDismissed),
	)
}

func questionsListCommand() *cli.Command {
	var (
		cfg       config
		sessionID int64
		status    string
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "session",
			Aliases:     []string{"s"},
			Usage:       "Only questions raised in this session",
			Destination: &sessionID,
		},
		&cli.StringFlag{
			Name:        "status",
			Usage:       "Only questions in this status (pending, asked, dismissed)",
			Destination: &status,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List questions of the selected user",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, a, err := cfg.newApp(ctx, c.Root().Writer)
			if err != nil {
				return err
			}

			p := page.NewQuestions(a.store, a.backend)
			err = p.SetFilter(ctx, page.QuestionFilter{
				SessionID: model.SessionID(sessionID),
				Status:    model.QuestionStatus(status),
			})
			a.render.Questions(p.Snapshot())
			return err
		},
	}
}

func questionStatusCommand(name, usage string, status model.QuestionStatus) *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<question-id>",
		Flags:     globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			id, err := argID(c, 0, "question-id")
			if err != nil {
				return err
			}

			ctx, a, err := cfg.newApp(ctx, c.Root().Writer)
			if err != nil {
				return err
			}

			p := page.NewQuestions(a.store, a.backend)
			if err := p.SetStatus(ctx, model.QuestionID(id), status); err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "Question %d is now %s\n", id, status)
			return nil
		},
	}
}
