package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var errSlotNotFound = errors.New("slot not found")

func (cli *commandLine) dumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump SLOT",
		Short: "Print the persisted value of a slot",
		Long: `Print the persisted value of a slot, e.g. user-storage, announcement-storage,
inventory-storage, leave-storage or maintenance-storage.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, found, err := cli.backend.Load(cmd.Context(), args[0])
			if err != nil {
				return errors.Wrapf(err, "loading slot %q", args[0])
			}
			if !found {
				return errors.Wrapf(errSlotNotFound, "%q", args[0])
			}
			var out bytes.Buffer
			if err := json.Indent(&out, value, "", "  "); err != nil {
				return errors.Wrapf(err, "slot %q holds invalid JSON", args[0])
			}
			fmt.Fprintln(cli.out, out.String())
			return nil
		},
	}
}
