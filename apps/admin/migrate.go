package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hostelhq/hostel/storage/database"
)

var (
	runMigrationsFunc = database.RunMigrations // mockable

	errNoDatabase = errors.New("migrations need the sqlite or postgres storage driver")
)

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a goose command against the slots schema",
		Long: `Run a goose command against the slots schema.

Commands: up, up-by-one, up-to VERSION, down, down-to VERSION, redo, reset, status, version

Example:
  admin migrate status
  admin migrate down-to 0`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cli.db == nil {
				return errNoDatabase
			}
			return runMigrationsFunc(args[0], cli.db, cli.conf.Storage.Driver, args[1:]...)
		},
	}
}
