package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Configuration precedence: flags > environment > .env file > defaults
func run(ctx context.Context, getenv func(string) string, getwd func() (string, error), args []string, stdin io.Reader, stdout io.Writer) error {
	c := NewConfig()
	if err := c.LoadDotEnv(getwd); err != nil {
		return err
	}
	c.LoadEnv(getenv)

	root := newRootCmd(c, func(ctx context.Context) (*App, error) {
		return NewApp(ctx, c)
	})
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(io.Discard)
	root.SilenceErrors = true

	return root.ExecuteContext(ctx)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Getenv, os.Getwd, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err) // nolint:errcheck
		cancel()
		os.Exit(1)
	}
}
