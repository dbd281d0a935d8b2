package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hostelhq/hostel/core"
	"github.com/hostelhq/hostel/core/announcement"
	"github.com/hostelhq/hostel/core/inventory"
	"github.com/hostelhq/hostel/core/store"
	"github.com/hostelhq/hostel/core/user"
	emailsvc "github.com/hostelhq/hostel/services/email"
	"github.com/hostelhq/hostel/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errEmptyPassword = errors.New("password cannot be empty")
)

type commandLine struct {
	conf     *core.Config
	backend  core.SlotStorage
	db       *sqlx.DB // nil unless the storage driver is sqlite or postgres
	validate *validator.Validate
	out      io.Writer

	users         *user.Service
	announcements *announcement.Service
	inventory     *inventory.Service
}

func newCommandLine(ctx context.Context, conf *core.Config, backend core.SlotStorage, logger core.Logger, out io.Writer) (*commandLine, error) {
	withLogger := store.WithLogger(logger)
	usrStore, err := user.NewStore(ctx, backend, withLogger)
	if err != nil {
		return nil, errors.Wrap(err, "loading users")
	}
	annStore, err := announcement.NewStore(ctx, backend, withLogger)
	if err != nil {
		return nil, errors.Wrap(err, "loading announcements")
	}
	invStore, err := inventory.NewStore(ctx, backend, withLogger)
	if err != nil {
		return nil, errors.Wrap(err, "loading inventory")
	}

	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	user.InitValidators(validate, translator)

	cli := &commandLine{
		conf:          conf,
		backend:       backend,
		validate:      validate,
		out:           out,
		users:         user.NewService(usrStore, emailsvc.NewConsoleService(conf, logger), conf),
		announcements: announcement.NewService(annStore),
		inventory:     inventory.NewService(invStore),
	}
	if sqlBackend, ok := backend.(*database.SlotStorage); ok {
		cli.db = sqlBackend.DB()
	}
	return cli, nil
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Hostel administration commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)
	root.AddCommand(
		cli.addUserCmd(),
		cli.resetPasswordCmd(),
		cli.migrateCmd(),
		cli.seedCmd(),
		cli.dumpCmd(),
	)
	return root
}

// run executes the command line without the program name.
func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	if len(pwd) == 0 {
		return "", errEmptyPassword
	}
	return string(pwd), nil
}
