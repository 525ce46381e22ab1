package cli

import (
	"context"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifebook/pkg/adapter"
	"github.com/m-mizutani/lifebook/pkg/model"
	"github.com/m-mizutani/lifebook/pkg/render"
	"github.com/m-mizutani/lifebook/pkg/usecase/selection"
	"github.com/m-mizutani/lifebook/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Version is reported by the MCP server and --version
var Version = "dev"

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:    "lifebook",
		Usage:   "Operator console for the LifeBook memory extraction backend",
		Version: Version,
		Commands: []*cli.Command{
			homeCommand(),
			usersCommand(),
			sessionsCommand(),
			memoriesCommand(),
			personsCommand(),
			chaptersCommand(),
			promptRunsCommand(),
			questionsCommand(),
			consoleCommand(),
			mcpCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		logging.Default().Error("command failed", "error", err)
		return &Error{
			Code:    1,
			Message: render.Message(err),
		}
	}

	return nil
}

// app bundles the dependencies shared by page commands
type app struct {
	cfg     *config
	backend adapter.Backend
	store   *selection.Store
	render  *render.Renderer
}

func (cfg *config) newApp(ctx context.Context, w io.Writer) (context.Context, *app, error) {
	ctx, err := cfg.setup(ctx)
	if err != nil {
		return ctx, nil, err
	}

	backend, err := cfg.newBackend()
	if err != nil {
		return ctx, nil, err
	}

	store, err := cfg.newStore(ctx)
	if err != nil {
		return ctx, nil, err
	}

	return ctx, &app{
		cfg:     cfg,
		backend: backend,
		store:   store,
		render:  render.New(w),
	}, nil
}

// argID parses the n-th positional argument as a record ID
func argID(c *cli.Command, n int, name string) (int64, error) {
	return idAt(c.Args().Slice(), n, name)
}

func idAt(args []string, n int, name string) (int64, error) {
	if len(args) <= n {
		return 0, goerr.New("missing argument", goerr.V("name", name))
	}
	id, err := model.ParseID(args[n])
	if err != nil {
		return 0, goerr.Wrap(err, "invalid argument", goerr.V("name", name))
	}
	return id, nil
}

// subcommands builds a command group whose subcommands carry their own flags
func subcommands(name, usage string, cmds ...*cli.Command) *cli.Command {
	return &cli.Command{
		Name:     name,
		Usage:    usage,
		Commands: cmds,
	}
}
