package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/SolarSense/backend/cmd/server/commands"
	"github.com/GriffinCanCode/SolarSense/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/SolarSense/backend/internal/infrastructure/server"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, serve))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, serveFn commands.ServeFunc) int {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cli := commands.New(serveFn)
	cli.SetArgs(args)
	cli.SetOutput(stdout, stderr)

	if err := cli.Execute(ctx); err != nil {
		_, _ = fmt.Fprintln(stderr, "Error: "+err.Error())
		return 1
	}
	return 0
}

// serve runs the API server until a shutdown signal arrives
func serve(ctx context.Context, cfg *config.Config) error {
	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer srv.Close()

	return srv.Run(ctx)
}
