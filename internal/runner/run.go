package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	v1 "github.com/inpxtools/inpxsplit/apis/v1"
	"github.com/inpxtools/inpxsplit/internal/inpx"
)

var defaultValidator = validator.New(validator.WithRequiredStructEnabled())

// ArchivePicker chooses one source archive from candidates when the job does
// not name one explicitly. A nil picker means non-interactive operation.
type ArchivePicker func(candidates []string) (string, error)

// ParseSplitJob parses a YAML job file, expands ${VAR} references in path
// fields against the allow-listed environment, applies defaults, and
// validates the result.
func ParseSplitJob(data []byte, allowedEnv []string) (v1.SplitJob, error) {
	var job v1.SplitJob
	if err := yaml.Unmarshal(data, &job); err != nil {
		return v1.SplitJob{}, fmt.Errorf("failed to unmarshal job data: %w", err)
	}

	variables, err := BuildVariables(job, allowedEnv)
	if err != nil {
		return v1.SplitJob{}, err
	}
	if err := expandJobPaths(&job, variables); err != nil {
		return v1.SplitJob{}, err
	}

	return NormalizeSplitJob(job)
}

// NormalizeSplitJob applies defaults and validates a job built in memory.
func NormalizeSplitJob(job v1.SplitJob) (v1.SplitJob, error) {
	applyDefaults(&job)

	if err := defaultValidator.Struct(job); err != nil {
		return v1.SplitJob{}, fmt.Errorf("failed to validate job: %w", err)
	}

	return job, nil
}

func applyDefaults(job *v1.SplitJob) {
	if len(job.Spec.Variants) == 0 {
		job.Spec.Variants = []v1.Variant{{Tag: "fb2"}, {Tag: "usr"}}
	}
	for i := range job.Spec.Variants {
		if job.Spec.Variants[i].Records == "" {
			job.Spec.Variants[i].Records = inpx.DefaultRecordGlob(job.Spec.Variants[i].Tag)
		}
	}

	if job.Spec.Output == nil {
		job.Spec.Output = &v1.OutputSpec{}
	}
	if job.Spec.Output.Dir == "" {
		job.Spec.Output.Dir = job.Spec.Input.Dir
	}
}

// Runner drives one split run end to end.
type Runner struct {
	logger *zap.Logger
	job    v1.SplitJob
	picker ArchivePicker

	// fs backs the per-variant extraction area.
	fs afero.Fs
	// scratchRoot overrides the scratch parent directory; empty means the
	// system temp dir.
	scratchRoot string
}

func New(logger *zap.Logger, job v1.SplitJob, picker ArchivePicker) (*Runner, error) {
	logger.Info("creating runner",
		zap.String("job_name", job.Metadata.Name),
		zap.Strings("variants", lo.Map(job.Spec.Variants, func(v v1.Variant, _ int) string { return v.Tag })))

	return &Runner{
		logger: logger,
		job:    job,
		picker: picker,
		fs:     afero.NewOsFs(),
	}, nil
}

// VariantResult is the terminal report for one variant sub-pipeline.
type VariantResult struct {
	Tag   string
	Count int64
	Path  string
	Err   error
}

// Run resolves the source archive, then drives every variant sub-pipeline.
// The variants are independent: a failure in one never blocks the others.
// The scratch area is removed on every exit path; removal failures are
// logged and never escalate.
func (r *Runner) Run(ctx context.Context) error {
	sourcePath, err := r.resolveSource()
	if err != nil {
		return err
	}

	source, err := inpx.Open(sourcePath)
	if err != nil {
		return err
	}
	r.logger.Info("source archive selected", zap.String("path", sourcePath))

	publishSinks, err := buildSinks(ctx, r.job)
	if err != nil {
		return err
	}

	scratch, err := os.MkdirTemp(r.scratchRoot, "inpxsplit-*")
	if err != nil {
		return fmt.Errorf("failed to create scratch area: %w", err)
	}
	defer func() {
		// Use a background context for cleanup so it always runs, even if
		// the original context was cancelled.
		if err := os.RemoveAll(scratch); err != nil {
			r.logger.Error("failed to remove scratch area", zap.String("path", scratch), zap.Error(err))
		}
		cleanupCtx := context.Background()
		for _, sink := range publishSinks {
			if err := sink.Close(cleanupCtx); err != nil {
				r.logger.Error("failed to close sink", zap.String("sink", sink.Name()), zap.Error(err))
			}
		}
	}()

	results := make([]VariantResult, 0, len(r.job.Spec.Variants))
	for _, spec := range r.job.Spec.Variants {
		if ctxErr := ctx.Err(); ctxErr != nil {
			results = append(results, VariantResult{Tag: spec.Tag, Err: fmt.Errorf("run cancelled: %w", ctxErr)})
			continue
		}

		results = append(results, r.runVariant(ctx, source, spec, scratch, publishSinks))
	}

	r.logSummary(results)

	var errs error
	for _, res := range results {
		if res.Err != nil {
			errs = errors.Join(errs, fmt.Errorf("variant %s: %w", res.Tag, res.Err))
		}
	}

	return errs
}

// resolveSource picks the source archive: the one the job names, or the sole
// candidate in the input directory, or whatever the interactive picker
// chooses. Everything here fails before any archive work begins.
func (r *Runner) resolveSource() (string, error) {
	input := r.job.Spec.Input

	if input.Archive != "" {
		path := input.Archive
		if !filepath.IsAbs(path) {
			path = filepath.Join(input.Dir, path)
		}
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("input archive: %w", err)
		}
		return path, nil
	}

	candidates, err := filepath.Glob(filepath.Join(input.Dir, "*.inpx"))
	if err != nil {
		return "", fmt.Errorf("scan input directory: %w", err)
	}

	switch len(candidates) {
	case 0:
		return "", fmt.Errorf("no .inpx archives found in %s", input.Dir)
	case 1:
		return candidates[0], nil
	}

	if r.picker == nil {
		return "", fmt.Errorf("%d archives found in %s and no terminal to pick one; set spec.input.archive", len(candidates), input.Dir)
	}

	return r.picker(candidates)
}

// logSummary reports the outcome of every variant, even when some failed early.
func (r *Runner) logSummary(results []VariantResult) {
	for _, res := range results {
		if res.Err != nil {
			r.logger.Error("variant failed", zap.String("tag", res.Tag), zap.Error(res.Err))
			continue
		}
		r.logger.Info("variant finished", zap.String("tag", res.Tag), zap.Int64("books", res.Count), zap.String("path", res.Path))
	}

	failed := lo.CountBy(results, func(res VariantResult) bool { return res.Err != nil })
	r.logger.Info("run finished", zap.Int("variants", len(results)), zap.Int("failed", failed))
}
