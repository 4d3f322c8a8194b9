package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	v1 "github.com/inpxtools/inpxsplit/apis/v1"
	"github.com/inpxtools/inpxsplit/internal/engine"
	"github.com/inpxtools/inpxsplit/internal/engine/sinks"
	"github.com/inpxtools/inpxsplit/internal/inpx"
)

// runVariant drives one variant through build, extract, count, header
// rewrite, and publish. The variant archive is assembled under the scratch
// area and only reaches the output sinks once its header is final.
func (r *Runner) runVariant(ctx context.Context, source *inpx.Archive, spec v1.Variant, scratch string, publishSinks []engine.Sink) VariantResult {
	logger := r.logger.Named("variant").With(zap.String("tag", spec.Tag))
	res := VariantResult{Tag: spec.Tag}

	variant := inpx.Variant{Tag: spec.Tag, RecordGlob: spec.Records}

	workDir := filepath.Join(scratch, spec.Tag)
	extractDir := filepath.Join(workDir, "records")
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		res.Err = fmt.Errorf("prepare scratch: %w", err)
		return res
	}

	archive, err := inpx.BuildVariant(source, variant, workDir)
	if err != nil {
		res.Err = fmt.Errorf("build: %w", err)
		return res
	}
	logger.Info("variant archive built", zap.String("archive", filepath.Base(archive.Path())))

	scratchFs := afero.NewBasePathFs(r.fs, extractDir)
	if err := archive.ExtractAll(scratchFs); err != nil {
		res.Err = fmt.Errorf("extract: %w", err)
		return res
	}

	progress := engine.ProgressFunc(func(current, total int, label string) {
		logger.Debug("counting records", zap.Int("done", current), zap.Int("total", total), zap.String("file", label))
	})

	count, files, err := inpx.CountRecords(scratchFs, variant.RecordGlob, progress)
	if err != nil {
		res.Err = fmt.Errorf("count: %w", err)
		return res
	}
	if files == 0 {
		logger.Warn("no record files matched; header will report zero books", zap.String("glob", variant.RecordGlob))
	}
	res.Count = count

	if err := inpx.RewriteHeader(archive, spec.Tag, count); err != nil {
		res.Err = fmt.Errorf("rewrite header: %w", err)
		return res
	}
	logger.Info("header rewritten", zap.Int64("books", count))

	name := filepath.Base(archive.Path())
	if err := publish(ctx, archive.Path(), name, publishSinks); err != nil {
		res.Err = fmt.Errorf("publish: %w", err)
		return res
	}

	res.Path = filepath.Join(r.job.Spec.Output.Dir, name)
	return res
}

// publish streams the finished archive to every configured sink.
func publish(ctx context.Context, archivePath, name string, publishSinks []engine.Sink) error {
	for _, sink := range publishSinks {
		if err := writeToSink(ctx, sink, archivePath, name); err != nil {
			return fmt.Errorf("sink %s: %w", sink.Name(), err)
		}
	}
	return nil
}

func writeToSink(ctx context.Context, sink engine.Sink, archivePath, name string) (err error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	return sink.Write(ctx, name, f)
}

// buildSinks creates the publish sinks for finished variants: always the
// output directory, plus the optional S3 mirror.
func buildSinks(ctx context.Context, job v1.SplitJob) ([]engine.Sink, error) {
	out := job.Spec.Output

	fsSink, err := sinks.NewFilesystemSinkFromPath(out.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to build filesystem sink: %w", err)
	}
	built := []engine.Sink{fsSink}

	if out.S3 != nil {
		s3Sink, err := buildS3Sink(ctx, out.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to build s3 sink: %w", err)
		}
		built = append(built, s3Sink)
	}

	return built, nil
}

func buildS3Sink(ctx context.Context, spec *v1.S3Spec) (engine.Sink, error) {
	cfg := sinks.S3Config{
		Bucket:         spec.Bucket,
		ForcePathStyle: spec.ForcePathStyle,
	}

	if spec.Region != nil {
		cfg.Region = *spec.Region
	}
	if spec.Endpoint != nil {
		cfg.Endpoint = *spec.Endpoint
	}
	if spec.Prefix != nil {
		cfg.Prefix = *spec.Prefix
	}
	if spec.Credentials != nil {
		cfg.AccessKeyID = spec.Credentials.AccessKeyID
		cfg.SecretAccessKey = spec.Credentials.SecretAccessKey
	}

	return sinks.NewS3Sink(ctx, cfg)
}
