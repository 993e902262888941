package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"riz/pkg/auth"
)

func newUsersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "User administration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newSetManagerCommand())
	cmd.AddCommand(newSetPasswordCommand())
	return cmd
}

func newSetManagerCommand() *cobra.Command {
	var (
		userID    int64
		managerID int64
		detach    bool
	)

	cmd := &cobra.Command{
		Use:   "set-manager",
		Short: "Assign or clear a user's manager",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !detach && managerID == 0 {
				return errors.New("either --manager or --clear is required")
			}

			ctx := commandContext(cmd)
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			var target *int64
			if !detach {
				target = &managerID
			}
			if err := store.SetManager(ctx, userID, target); err != nil {
				return fmt.Errorf("set manager of %d: %w", userID, err)
			}
			log.Info().Int64("user_id", userID).Interface("manager_id", target).Msg("manager updated")
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "User id to update")
	cmd.Flags().Int64Var(&managerID, "manager", 0, "New manager id")
	cmd.Flags().BoolVar(&detach, "clear", false, "Remove the manager reference")
	cmd.MarkFlagsMutuallyExclusive("manager", "clear")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newSetPasswordCommand() *cobra.Command {
	var identifier string

	cmd := &cobra.Command{
		Use:   "set-password",
		Short: "Replace a user's password; the new password is read from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}
			if err := auth.ValidateNewPassword(password); err != nil {
				return err
			}

			ctx := commandContext(cmd)
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			acct, err := store.FindByIdentifier(ctx, identifier)
			if err != nil {
				return fmt.Errorf("find %q: %w", identifier, err)
			}
			hash, err := auth.NewHasher(cfg.BcryptCost).Hash([]byte(password))
			if err != nil {
				return err
			}
			if err := store.UpdatePasswordHash(ctx, acct.ID, hash); err != nil {
				return err
			}
			log.Info().Str("identifier", identifier).Msg("password updated")
			return nil
		},
	}

	cmd.Flags().StringVar(&identifier, "identifier", "", "Login identifier of the user")
	_ = cmd.MarkFlagRequired("identifier")
	return cmd
}

func readPassword(r io.Reader) (string, error) {
	if f, ok := r.(*os.File); ok && f == os.Stdin {
		fmt.Fprint(os.Stderr, "New password: ")
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
