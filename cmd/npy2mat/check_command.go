package main

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/backmassage/npy2mat/internal/check"
	"github.com/backmassage/npy2mat/internal/config"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check <source_dir> <dest_dir>",
		Short: "Check that a batch can run without converting anything",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := ctx.newLogger(cmd)
			if err != nil {
				return err
			}
			defer log.Close()

			if !check.RunCheck(cfg, config.NormalizeDirArg(args[0]), config.NormalizeDirArg(args[1]), log) {
				return errors.Mark(errors.New("preflight check failed"), errReported)
			}
			return nil
		},
	}
}
