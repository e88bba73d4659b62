package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/backmassage/npy2mat/internal/config"
	"github.com/backmassage/npy2mat/internal/display"
	"github.com/backmassage/npy2mat/internal/pipeline"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <source_dir>",
		Short: "Show dtype and shape of every array without converting",
		Long: `inspect reads only the header of each array file, so it is cheap even on
very large arrays. Files that would fail to decode are flagged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := ctx.newLogger(cmd)
			if err != nil {
				return err
			}
			defer log.Close()

			dir := config.NormalizeDirArg(args[0])
			rows, other, err := pipeline.Inspect(dir, cfg.Convert.SourceExt)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				log.Warn("No %s files found in %s", cfg.Convert.SourceExt, dir)
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), display.InspectTable(rows))

			var bad int
			var payload int64
			for _, r := range rows {
				if r.Err != nil {
					bad++
				} else {
					payload += r.Header.PayloadSize()
				}
			}
			log.Info("Inspected %d files (%s of array data)", len(rows), display.FormatBytes(payload))
			if other > 0 {
				log.Info("  %d other files would be skipped", other)
			}
			if bad > 0 {
				log.Warn("  %d files would fail to decode", bad)
			} else {
				log.Success("  All headers are readable")
			}
			return nil
		},
	}
}
