package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hostelhq/hostel/core/user"
)

func (cli *commandLine) resetPasswordCmd() *cobra.Command {
	var uname string
	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Reset a user's password",
		Long: `Reset a user's password. The password is prompted next.

Example:
  admin resetpassword --username jdoe`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pwd, err := cli.promptPassword()
			if err != nil {
				return err
			}
			if err := cli.resetPassword(cmd.Context(), uname, pwd); err != nil {
				return err
			}
			fmt.Fprintln(cli.out, "password updated")
			return nil
		},
	}
	cmd.Flags().StringVarP(&uname, "username", "u", "", "the user's username or email (required)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func (cli *commandLine) resetPassword(ctx context.Context, uname, pwd string) error {
	usr, err := cli.users.GetByUsernameOrEmail(uname)
	if err != nil {
		return err
	}
	_, err = cli.users.Update(ctx, usr.ID, user.UpdateUser{Password: pwd})
	return err
}
