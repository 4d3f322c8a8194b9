package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	v1 "github.com/inpxtools/inpxsplit/apis/v1"
	"github.com/inpxtools/inpxsplit/internal/runner"
)

var splitCommand = &cli.Command{
	Name:  "split",
	Usage: "Split an INPX archive into variant archives",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "input-dir",
			Aliases: []string{"i"},
			Usage:   "Directory holding the source archive (used when no job file is given)",
		},
		&cli.StringFlag{
			Name:    "archive",
			Aliases: []string{"a"},
			Usage:   "Source archive filename inside the input directory",
		},
		&cli.StringFlag{
			Name:    "output-dir",
			Aliases: []string{"o"},
			Usage:   "Directory receiving the variant archives",
		},
		&cli.StringSliceFlag{
			Name:  "allowed-env",
			Usage: "Environment variables allowed in job configuration (can be repeated)",
		},
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "job",
			UsageText: "The job file describing the split",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)

		job, err := loadJob(command)
		if err != nil {
			return err
		}

		var picker runner.ArchivePicker
		if isInteractiveEnvironment() {
			picker = pickArchive
		}

		r, err := runner.New(logger.Named("runner"), job, picker)
		if err != nil {
			return fmt.Errorf("failed to create runner: %w", err)
		}

		if err := r.Run(ctx); err != nil {
			return fmt.Errorf("failed to run split: %w", err)
		}

		return nil
	},
}

// loadJob reads the job file argument, or synthesizes an ad-hoc job from the
// command flags when no file is given.
func loadJob(command *cli.Command) (v1.SplitJob, error) {
	allowedEnv := command.StringSlice("allowed-env")

	if jobFilename := command.StringArg("job"); jobFilename != "" {
		data, err := os.ReadFile(jobFilename)
		if err != nil {
			return v1.SplitJob{}, fmt.Errorf("failed to read job file: %w", err)
		}
		return runner.ParseSplitJob(data, allowedEnv)
	}

	inputDir := command.String("input-dir")
	if inputDir == "" {
		return v1.SplitJob{}, fmt.Errorf("either a job file or --input-dir is required")
	}

	job := v1.SplitJob{
		Kind:     v1.KindSplitJob,
		Metadata: v1.Metadata{Name: "adhoc"},
		Spec: v1.SplitJobSpec{
			Input:  v1.InputSpec{Dir: inputDir, Archive: command.String("archive")},
			Output: &v1.OutputSpec{Dir: command.String("output-dir")},
		},
	}

	return runner.NormalizeSplitJob(job)
}
