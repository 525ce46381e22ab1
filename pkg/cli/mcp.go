package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifebook/pkg/service/mcp"
	"github.com/m-mizutani/lifebook/pkg/utils/logging"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

func mcpCommand() *cli.Command {
	var (
		cfg  config
		addr string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "http",
			Usage:       "Serve streamable HTTP on this address instead of stdio",
			Sources:     cli.EnvVars("LIFEBOOK_MCP_ADDR"),
			Destination: &addr,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the console's read operations as MCP tools",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, a, err := cfg.newApp(ctx, c.Root().Writer)
			if err != nil {
				return err
			}

			server := mcp.NewServer(a.backend, a.store, Version, mcp.WithVersions(cfg.versions()))

			if addr == "" {
				return server.Run(ctx, &mcpsdk.StdioTransport{})
			}
			return serveHTTP(ctx, addr, server.HTTPHandler())
		},
	}
}

// serveHTTP runs handler on addr until ctx is done
func serveHTTP(ctx context.Context, addr string, handler http.Handler) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		logging.From(ctx).Info("serving MCP over HTTP", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return goerr.Wrap(err, "failed to serve MCP", goerr.V("addr", addr))
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
