package main

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/backmassage/npy2mat/internal/check"
	"github.com/backmassage/npy2mat/internal/config"
	"github.com/backmassage/npy2mat/internal/display"
	"github.com/backmassage/npy2mat/internal/mat"
	"github.com/backmassage/npy2mat/internal/pipeline"
)

func runConvert(cmd *cobra.Command, ctx *commandContext, sourceArg, destArg string) error {
	cfg, err := ctx.ensureConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidatePaths(sourceArg, destArg); err != nil {
		return err
	}
	sourceDir := config.NormalizeDirArg(sourceArg)
	destDir := config.NormalizeDirArg(destArg)

	_, log, err := ctx.newLogger(cmd)
	if err != nil {
		return err
	}
	defer log.Close()

	out := cmd.OutOrStdout()
	display.PrintBanner(out)
	log.Info("=== npy2mat v%s ===", version)
	log.Info("In:  %s", sourceDir)
	log.Info("Out: %s", destDir)
	log.Debug("Variable: %s, compress: %v, %s -> %s",
		cfg.Convert.VariableName, cfg.Convert.Compress, cfg.Convert.SourceExt, cfg.Convert.DestExt)

	// Problems found here are reported but do not stop the batch; each
	// affected file still gets its own result.
	if err := check.CheckPaths(cfg, sourceDir, destDir); err != nil {
		switch {
		case errors.Is(err, check.ErrSourceUnreadable):
			// RunBatch reports this as ListingFailed.
		case errors.Is(err, check.ErrNoConvertibleFiles):
			log.Warn("%v", err)
		default:
			log.Warn("%v", err)
			for _, hint := range errors.GetAllHints(err) {
				log.Warn("  %s", hint)
			}
			log.Warn("Every file will fail to encode")
		}
	}

	p := pipeline.New(pipeline.Options{
		SourceExt: cfg.Convert.SourceExt,
		DestExt:   cfg.Convert.DestExt,
		Encoder: mat.Encoder{
			Variable: cfg.Convert.VariableName,
			Compress: cfg.Convert.Compress,
		},
	}, log)
	s := p.RunBatch(sourceDir, destDir)

	if len(s.Results) > 0 {
		fmt.Fprintln(out, display.ResultsTable(&s))
	}
	fmt.Fprintln(out, display.SummaryTable(&s))

	switch s.Outcome() {
	case pipeline.OutcomeListingFailed:
		return errors.Mark(s.Err, errReported)
	case pipeline.OutcomeNoFiles:
		log.Warn("No files found in %s", sourceDir)
	case pipeline.OutcomeAllConverted:
		log.Success("All %d files converted", s.Converted)
	case pipeline.OutcomePartial:
		if s.Converted == 0 {
			log.Warn("No files converted")
		} else {
			log.Warn("%d of %d files converted", s.Converted, s.Total)
		}
	}
	return nil
}
