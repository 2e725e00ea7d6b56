package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nkiryanov/novalite/internal/apierror"
	"github.com/nkiryanov/novalite/internal/service/auth"
)

const maxPrintedBody = 10 << 20

// Opens App for one command run
type appFactory func(ctx context.Context) (*App, error)

func newRootCmd(c *Config, newApp appFactory) *cobra.Command {
	root := &cobra.Command{
		Use:   "novalite",
		Short: "Call the API as a logged in user",
		Long: `novalite keeps API credentials between runs and refreshes
the access token when it expires.

Log in once, then call any API path:
  novalite login -u ana
  novalite request GET /items/`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.Validate()
		},
	}
	c.BindFlags(root.PersistentFlags())

	root.AddCommand(
		newLoginCmd(c, newApp),
		newLogoutCmd(newApp),
		newWhoamiCmd(newApp),
		newRequestCmd(newApp),
	)
	return root
}

func newLoginCmd(c *Config, newApp appFactory) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store credentials",
		Long: `Log in with username and password and store issued tokens.

Password is taken from --password, NOVALITE_PASSWORD or the first line of stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password := c.Password
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("can't read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}

			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			identity, err := app.Client.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", identity.Username, identity.Role)
			return err
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&c.Password, "password", "p", c.Password, "Password")

	return cmd
}

func newLogoutCmd(newApp appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Client.Logout(cmd.Context()); err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return err
		},
	}
}

func newWhoamiCmd(newApp appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show identity from stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			identity, err := app.Client.Identity(cmd.Context())
			if err != nil {
				return err
			}

			state := "valid"
			if identity.Expired(time.Now()) {
				state = "expired, refreshed on next request"
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"user:    %s\nid:      %s\nrole:    %s\naccess:  %s until %s\n",
				identity.Username, identity.UserID, identity.Role, state, identity.ExpiresAt.Format(time.RFC3339),
			)
			return err
		},
	}
}

func newRequestCmd(newApp appFactory) *cobra.Command {
	var data string
	var headers []string

	cmd := &cobra.Command{
		Use:   "request METHOD PATH",
		Short: "Send authenticated request and print response body",
		Example: `  novalite request GET /items/
  novalite request PATCH /events/3/ -d '{"status": "Finalizado"}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := auth.Options{Method: strings.ToUpper(args[0]), Header: http.Header{}}

			if data != "" {
				if !json.Valid([]byte(data)) {
					return errors.New("--data must be valid JSON")
				}
				opts.Body = json.RawMessage(data)
			}

			for _, h := range headers {
				k, v, ok := strings.Cut(h, ":")
				if !ok || strings.TrimSpace(k) == "" {
					return fmt.Errorf("invalid header %q, expected 'Name: value'", h)
				}
				opts.Header.Add(strings.TrimSpace(k), strings.TrimSpace(v))
			}

			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			resp, err := app.Client.Request(cmd.Context(), args[1], opts)
			if err != nil {
				return err
			}
			defer resp.Body.Close() // nolint:errcheck

			body, err := io.ReadAll(io.LimitReader(resp.Body, maxPrintedBody))
			if err != nil {
				return fmt.Errorf("can't read response: %w", err)
			}

			if resp.StatusCode >= http.StatusBadRequest {
				return fmt.Errorf("%s %s: %s", opts.Method, args[1], apierror.Message(resp.StatusCode, body))
			}

			_, err = cmd.OutOrStdout().Write(body)
			return err
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "Extra header 'Name: value', repeatable")

	return cmd
}
