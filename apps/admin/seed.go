package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hostelhq/hostel/core"
	"github.com/hostelhq/hostel/core/announcement"
	"github.com/hostelhq/hostel/core/inventory"
	"github.com/hostelhq/hostel/core/user"
)

// fixtures is the layout of a seed file:
//
//	users:
//	  - name: John Doe
//	    username: jdoe
//	    room_number: A101
//	    password: S3cret#pwd
//	    roles: ["student:"]
//	announcements:
//	  - title: Welcome
//	    category: event
//	    date: 2024-01-15
//	    description: Welcome party in the common room
//	inventory:
//	  - item_name: Bulb
//	    quantity: 4
//	    block: A
//	    floor: "1"
//	    room: Bathroom
//	    purpose: Replacement
//	    date: 2024-01-20
type fixtures struct {
	Users []struct {
		Name       string   `yaml:"name"`
		Username   string   `yaml:"username"`
		Email      string   `yaml:"email"`
		RoomNumber string   `yaml:"room_number"`
		Password   string   `yaml:"password"`
		Roles      []string `yaml:"roles"`
	} `yaml:"users"`
	Announcements []struct {
		Title       string `yaml:"title"`
		Category    string `yaml:"category"`
		Date        string `yaml:"date"`
		Description string `yaml:"description"`
	} `yaml:"announcements"`
	Inventory []struct {
		ItemName string `yaml:"item_name"`
		Quantity int    `yaml:"quantity"`
		Block    string `yaml:"block"`
		Floor    string `yaml:"floor"`
		Room     string `yaml:"room"`
		Purpose  string `yaml:"purpose"`
		Date     string `yaml:"date"`
	} `yaml:"inventory"`
}

type seedReport struct {
	users, skippedUsers, announcements, items int
}

func (cli *commandLine) seedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load users, announcements and inventory items from a YAML file",
		Long: `Load users, announcements and inventory items from a YAML file.
Users whose username or email is already taken are skipped.

Example:
  admin seed --file fixtures.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return errors.Wrap(err, "reading fixtures")
			}
			report, err := cli.seed(cmd.Context(), data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "seeded %d users (%d skipped), %d announcements, %d inventory items\n",
				report.users, report.skippedUsers, report.announcements, report.items)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "path to the fixtures file (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (cli *commandLine) seed(ctx context.Context, data []byte) (seedReport, error) {
	var (
		fx     fixtures
		report seedReport
	)
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return report, errors.Wrap(err, "parsing fixtures")
	}

	for i, fu := range fx.Users {
		nu := user.NewUser{
			Name:            fu.Name,
			Username:        fu.Username,
			Email:           fu.Email,
			RoomNumber:      fu.RoomNumber,
			Password:        fu.Password,
			PasswordConfirm: fu.Password,
			Roles:           fu.Roles,
		}
		if err := nu.Validate(cli.validate, cli.users); err != nil {
			var vErr *core.ValidationError
			if errors.As(err, &vErr) && (vErr.Err == user.ErrUsernameExists || vErr.Err == user.ErrEmailExists) {
				report.skippedUsers++
				continue
			}
			return report, errors.Wrapf(err, "users[%d]", i)
		}
		if _, err := cli.users.Create(ctx, nu); err != nil {
			return report, errors.Wrapf(err, "creating users[%d]", i)
		}
		report.users++
	}

	for i, fa := range fx.Announcements {
		na := announcement.NewAnnouncement{Title: fa.Title, Category: fa.Category, Date: fa.Date, Description: fa.Description}
		if err := na.Validate(cli.validate); err != nil {
			return report, errors.Wrapf(err, "announcements[%d]", i)
		}
		if _, err := cli.announcements.Create(ctx, na); err != nil {
			return report, errors.Wrapf(err, "creating announcements[%d]", i)
		}
		report.announcements++
	}

	for i, fi := range fx.Inventory {
		ni := inventory.NewItem{
			ItemName: fi.ItemName,
			Quantity: fi.Quantity,
			Block:    fi.Block,
			Floor:    fi.Floor,
			Room:     fi.Room,
			Purpose:  fi.Purpose,
			Date:     fi.Date,
		}
		if err := ni.Validate(cli.validate); err != nil {
			return report, errors.Wrapf(err, "inventory[%d]", i)
		}
		if _, err := cli.inventory.Create(ctx, ni); err != nil {
			return report, errors.Wrapf(err, "creating inventory[%d]", i)
		}
		report.items++
	}
	return report, nil
}
