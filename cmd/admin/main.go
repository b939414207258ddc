// Command admin manages staff accounts directly against the database,
// for bootstrap and operations work that should not go through the HTTP API.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"syscall"
	"text/tabwriter"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"arkiva/internal/auth"
	internaldb "arkiva/internal/db"
	"arkiva/internal/db/repository"
	"arkiva/internal/domain"
)

var dbPath string

func openUserRepo() (*repository.UserRepo, *sql.DB, error) {
	db, err := internaldb.OpenSQLite(dbPath, "write", 0)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := internaldb.RunMigrations(db); err != nil {
		db.Close() //nolint:errcheck
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	// A single pool is enough for a short-lived CLI session.
	return repository.NewUserRepo(db, db), db, nil
}

// promptPassword reads a password without echo, with confirmation.
func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprint(os.Stderr, "Repeat password: ")
	second, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	if len(first) == 0 {
		return "", fmt.Errorf("password must not be empty")
	}
	return string(first), nil
}

func resolvePassword(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return promptPassword()
}

func newUserCreateCmd() *cobra.Command {
	var email, role, password string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a staff account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, db, err := openUserRepo()
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck

			pw, err := resolvePassword(password)
			if err != nil {
				return err
			}
			hash, err := auth.HashPassword(pw)
			if err != nil {
				return err
			}

			user, err := repo.Create(cmd.Context(), domain.CreateUserRequest{
				Email:        strings.ToLower(strings.TrimSpace(email)),
				PasswordHash: hash,
				Role:         role,
			})
			if err != nil {
				return err
			}
			fmt.Printf("created user %d (%s, %s)\n", user.ID, user.Email, user.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email (required)")
	cmd.Flags().StringVar(&role, "role", domain.RoleStaf, "role: staf, sekretaria, admin")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newUserListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List staff accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, db, err := openUserRepo()
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck

			users, total, err := repo.List(cmd.Context(), domain.PageRequest{Page: 1, PageSize: domain.MaxPageSize})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEMAIL\tROLE\tCREATED")
			for _, u := range users {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID, u.Email, u.Role, u.CreatedAt.Format("2006-01-02 15:04"))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Printf("%d account(s)\n", total)
			return nil
		},
	}
}

func newUserSetPasswordCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "set-password",
		Short: "Reset the password of a staff account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, db, err := openUserRepo()
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck

			user, err := repo.GetByEmail(cmd.Context(), strings.ToLower(strings.TrimSpace(email)))
			if err != nil {
				return err
			}

			pw, err := resolvePassword(password)
			if err != nil {
				return err
			}
			hash, err := auth.HashPassword(pw)
			if err != nil {
				return err
			}
			if err := repo.SetPassword(cmd.Context(), user.ID, hash); err != nil {
				return err
			}
			fmt.Printf("password updated for %s\n", user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email (required)")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func main() {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Operator tooling for the document archive",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "arkiva.sqlite", "path to the SQLite database")

	userCmd := &cobra.Command{Use: "user", Short: "Manage staff accounts"}
	userCmd.AddCommand(newUserCreateCmd(), newUserListCmd(), newUserSetPasswordCmd())
	root.AddCommand(userCmd)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
