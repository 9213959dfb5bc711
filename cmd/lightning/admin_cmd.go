package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/RWilker87/lightning-client/internal/admin"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "License administration (administrators only)",
}

var adminUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "List users and their license state",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		a.initSession(ctx)
		if err := a.requireGuard(ctx, a.adminGuard()); err != nil {
			return err
		}

		users, err := a.admin.ListUsers(ctx)
		if err != nil {
			return fmt.Errorf("failed to list users: %s", friendlyError(err))
		}

		writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(writer, "ID\tNAME\tEMAIL\tLICENSE\tVALID UNTIL")
		for _, user := range users {
			validity := "-"
			if user.ValidUntil != nil {
				validity = user.ValidUntil.Format("2006-01-02")
			}
			state := string(user.State)
			if user.State == admin.LicenseStateActive {
				state = fmt.Sprintf("active (%dd)", user.DaysRemaining)
			}
			fmt.Fprintf(writer, "%d\t%s\t%s\t%s\t%s\n",
				user.ID, user.Name, user.Email, state, validity)
		}
		return writer.Flush()
	},
}

var extendDays int

var adminExtendCmd = &cobra.Command{
	Use:   "extend <user-id>",
	Short: "Extend a user's license (default 30 days)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid user id %q", args[0])
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		a.initSession(ctx)
		if err := a.requireGuard(ctx, a.adminGuard()); err != nil {
			return err
		}

		if err := a.admin.ExtendLicense(ctx, userID, extendDays); err != nil {
			return fmt.Errorf("failed to extend license: %s", friendlyError(err))
		}
		days := extendDays
		if days <= 0 {
			days = admin.DefaultExtensionDays
		}
		fmt.Printf("License for user %d extended by %d days.\n", userID, days)
		return nil
	},
}

var adminRevokeCmd = &cobra.Command{
	Use:   "revoke <user-id>",
	Short: "Revoke a user's license",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid user id %q", args[0])
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		a.initSession(ctx)
		if err := a.requireGuard(ctx, a.adminGuard()); err != nil {
			return err
		}

		if err := a.admin.RevokeLicense(ctx, userID); err != nil {
			return fmt.Errorf("failed to revoke license: %s", friendlyError(err))
		}
		fmt.Printf("License for user %d revoked.\n", userID)
		return nil
	},
}

func init() {
	adminExtendCmd.Flags().IntVar(&extendDays, "days", admin.DefaultExtensionDays, "number of days to add")

	adminCmd.AddCommand(adminUsersCmd)
	adminCmd.AddCommand(adminExtendCmd)
	adminCmd.AddCommand(adminRevokeCmd)
}
