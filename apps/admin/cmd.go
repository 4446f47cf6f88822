package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/earnyourwings/wings/apps/admin/ui"
	"github.com/earnyourwings/wings/core"
	"github.com/earnyourwings/wings/core/competency"
	"github.com/earnyourwings/wings/core/session"
	"github.com/earnyourwings/wings/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	runProgramFunc   = runProgram        // mockable

	errMissingSecret = errors.New("a secret key is required")
	errUnknownRole   = errors.New("unknown role")
)

func runProgram(m tea.Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

type commandLine struct {
	conf     *core.Config
	backend  session.Backend
	logger   core.Logger
	validate *validator.Validate
	out      io.Writer
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	root := cli.rootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         cli.conf.AppName + " admin tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(cli.out)
	root.AddCommand(cli.tokenCmd(), cli.summaryCmd(), cli.tuiCmd())
	return root
}

// addUserFlags registers the flags describing the user a command acts as.
func addUserFlags(cmd *cobra.Command, usr *user.User) {
	f := cmd.Flags()
	f.StringVar(&usr.ID, "user", "", "The user's id, as known to the auth provider.")
	f.StringVar(&usr.Name, "name", "", "The user's display name.")
	f.StringVar(&usr.Email, "email", "", "The user's email.")
	f.StringSliceVar(&usr.Roles, "roles", []string{user.RoleEmployee}, "The user's roles (employee, moderator, admin).")
	_ = cmd.MarkFlagRequired("user")
}

func checkRoles(roles []string) ([]string, error) {
	roles = user.NormalizeRoles(roles)
	for _, role := range roles {
		known := false
		for _, r := range user.AllRoles {
			known = known || r == role
		}
		if !known {
			return nil, errors.Wrap(errUnknownRole, role)
		}
	}
	return roles, nil
}

func (cli *commandLine) tokenCmd() *cobra.Command {
	var (
		usr       user.User
		ttl       time.Duration
		askSecret bool
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed token to call the API as a given user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if usr.Roles, err = checkRoles(usr.Roles); err != nil {
				return err
			}

			key := cli.conf.SecretKey
			if askSecret || key == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Enter secret key:")
				secret, err := readPasswordFunc(int(syscall.Stdin))
				fmt.Fprintln(cmd.ErrOrStderr())
				if err != nil {
					return errors.Wrap(err, "reading secret key")
				}
				if len(secret) == 0 {
					return errMissingSecret
				}
				key = string(secret)
			}

			token, err := user.GenerateToken(user.NewClaims(usr, cli.conf.AppName, ttl), []byte(key))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	addUserFlags(cmd, &usr)
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "How long the token stays valid.")
	cmd.Flags().BoolVar(&askSecret, "ask-secret", false, "Prompt for the secret key instead of using the configured one.")
	return cmd
}

func (cli *commandLine) summaryCmd() *cobra.Command {
	var (
		userID string
		top    int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print a user's progress summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if top <= 0 {
				top = cli.conf.TopCompetencies
			}
			snap, err := cli.backend.UserCompetencies(cmd.Context(), userID)
			if err != nil {
				return errors.Wrapf(err, "fetching competencies of %q", userID)
			}
			sum := competency.Summarize(snap, top)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(sum)
			}
			fmt.Fprintf(out, "Overall progress: %d%%\n", sum.OverallProgress)
			fmt.Fprintf(out, "Tasks completed:  %d/%d\n", sum.CompletedTasks, sum.TotalTasks)
			fmt.Fprintln(out, "Top competencies:")
			for i, e := range sum.TopCompetencies {
				fmt.Fprintf(out, "  %d. %s (%s) %.0f%%\n", i+1, e.Area.Name, e.Key, e.Area.OverallProgress)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "The user's id.")
	cmd.Flags().IntVar(&top, "top", 0, "How many competency areas to rank (defaults to the configured number).")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON.")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func (cli *commandLine) tuiCmd() *cobra.Command {
	var usr user.User
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse and update a user's progress from the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if usr.Roles, err = checkRoles(usr.Roles); err != nil {
				return err
			}
			if usr.Name == "" {
				usr.Name = usr.ID
			}
			sess := session.New(usr, cli.backend, cli.logger, cli.validate)
			return runProgramFunc(ui.New(sess, cli.conf.TopCompetencies))
		},
	}
	addUserFlags(cmd, &usr)
	return cmd
}
