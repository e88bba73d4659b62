package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	flags := &flagValues{}
	ctx := newCommandContext(flags)

	rootCmd := &cobra.Command{
		Use:   "npy2mat <source_dir> <dest_dir>",
		Short: "Convert a directory of .npy arrays into .mat files",
		Long: `npy2mat converts every .npy file in source_dir into a MAT-file (Level 5)
in dest_dir. Each output keeps the input's base name and holds the array as a
single variable ("data" unless --var says otherwise).

Files with another extension are skipped, unreadable arrays are reported and
the batch carries on. dest_dir must already exist.`,
		Version:       version,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, ctx, args[0], args[1])
		},
	}
	rootCmd.SetVersionTemplate("npy2mat v{{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "Configuration file path")
	pf.StringVar(&flags.logFile, "log", "", "Also write JSON log lines to this file")
	pf.StringVar(&flags.color, "color", "auto", "Color output: auto, always or never")
	pf.BoolVar(&flags.noColor, "no-color", false, "Disable color output (same as --color never)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Show debug output")

	rootCmd.Flags().BoolVar(&flags.compress, "compress", false, "zlib-compress the stored matrix")
	rootCmd.Flags().StringVar(&flags.variable, "var", "data", "Name of the variable stored in each .mat file")

	rootCmd.AddCommand(newInspectCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
