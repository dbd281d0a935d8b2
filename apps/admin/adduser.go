package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hostelhq/hostel/core"
	"github.com/hostelhq/hostel/core/user"
)

var errUsernameOrEmail = errors.New("one of --username or --email is required")

func (cli *commandLine) addUserCmd() *cobra.Command {
	var (
		uname, email, name, room string
		roles                    []string
		isAdmin                  bool
	)
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user, or update the one with the same username or email",
		Long: `Create a user, or update the one with the same username or email.
The password is prompted next.

Example:
  admin adduser --username warden --email warden@hostel.cd --admin
  admin adduser --username jdoe --name "John Doe" --room A101 --role student:`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if core.CleanString(uname) == "" && core.CleanString(email) == "" {
				return errUsernameOrEmail
			}
			pwd, err := cli.promptPassword()
			if err != nil {
				return err
			}
			if isAdmin {
				roles = user.AllRoles
			}
			usr, err := cli.addUser(cmd.Context(), uname, email, name, room, pwd, roles)
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "user %q saved\n", usr.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&uname, "username", "", "the user's username")
	cmd.Flags().StringVar(&email, "email", "", "the user's email")
	cmd.Flags().StringVar(&name, "name", "", "the user's full name (defaults to the username)")
	cmd.Flags().StringVar(&room, "room", "", "the room of a student, e.g. A101")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "the user's roles")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "grant every role")
	return cmd
}

// addUser updates or creates a user.User
func (cli *commandLine) addUser(ctx context.Context, uname, email, name, room, pwd string, roles []string) (user.User, error) {
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.users.GetByUsername(uname)
	if core.IsNotFound(err) {
		usr, err = cli.users.GetByEmail(email)
	}
	if err != nil {
		if !core.IsNotFound(err) {
			return user.User{}, err
		}
		usr = user.User{Username: uname, Email: email, Name: uname}
		if usr.Name == "" {
			usr.Name = strings.Split(email, "@")[0]
		}
	}
	if name = core.CleanString(name); name != "" {
		usr.Name = name
	}
	if room = strings.ToUpper(core.CleanString(room)); room != "" {
		usr.RoomNumber = room
	}
	if roles != nil {
		for _, role := range roles {
			if user.RolePriority(role) == 0 {
				return user.User{}, errors.Errorf("invalid role %q", role)
			}
		}
		usr.Roles = roles
	}
	usr.IsActive = true
	if err := usr.SetPassword(pwd); err != nil {
		return user.User{}, errors.Wrap(err, "hashing password")
	}
	return cli.users.UpdateOrCreate(ctx, usr)
}
