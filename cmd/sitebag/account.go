package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func accountCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage the account and its users",
	}
	cmd.AddCommand(newTokenCmd(e))
	cmd.AddCommand(passwdCmd(e))
	cmd.AddCommand(userAddCmd(e))
	cmd.AddCommand(userDelCmd(e))
	return cmd
}

func newTokenCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "newtoken",
		Short: "Generate a new API token for the current account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := e.client.NewToken(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}

func passwdCmd(e *env) *cobra.Command {
	var password, confirm string
	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change the password of the current account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			msg, err := e.client.ChangePassword(cmd.Context(), password, confirm)
			return report(cmd, msg, "Password changed", err)
		},
	}
	cmd.Flags().StringVar(&password, "new", "", "new password")
	cmd.Flags().StringVar(&confirm, "confirm", "", "repeat the new password")
	return cmd
}

func userAddCmd(e *env) *cobra.Command {
	var password, confirm string
	cmd := &cobra.Command{
		Use:   "useradd <name>",
		Short: "Create a new account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := e.client.CreateUser(cmd.Context(), args[0], password, confirm)
			return report(cmd, msg, "Account created", err)
		},
	}
	cmd.Flags().StringVar(&password, "new", "", "password for the new account")
	cmd.Flags().StringVar(&confirm, "confirm", "", "repeat the password")
	return cmd
}

func userDelCmd(e *env) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "userdel <name>",
		Short: "Delete an account and all of its entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete account %s without --yes", args[0])
			}
			msg, err := e.client.DeleteAccount(cmd.Context(), args[0])
			return report(cmd, msg, "Account deleted", err)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the deletion")
	return cmd
}
