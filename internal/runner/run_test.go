package runner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	v1 "github.com/inpxtools/inpxsplit/apis/v1"
)

func TestParseSplitJob_Defaults(t *testing.T) {
	data := []byte(`
kind: SplitJob
metadata:
  name: nightly
spec:
  input:
    dir: /var/lib/books
`)

	job, err := ParseSplitJob(data, nil)
	require.NoError(t, err)

	assert.Equal(t, "nightly", job.Metadata.Name)
	assert.Equal(t, "/var/lib/books", job.Spec.Input.Dir)

	require.Len(t, job.Spec.Variants, 2)
	assert.Equal(t, "fb2", job.Spec.Variants[0].Tag)
	assert.Equal(t, "*fb2-*.inp", job.Spec.Variants[0].Records)
	assert.Equal(t, "usr", job.Spec.Variants[1].Tag)
	assert.Equal(t, "*usr-*.inp", job.Spec.Variants[1].Records)

	require.NotNil(t, job.Spec.Output)
	assert.Equal(t, "/var/lib/books", job.Spec.Output.Dir)
}

func TestParseSplitJob_CustomVariants(t *testing.T) {
	data := []byte(`
kind: SplitJob
metadata:
  name: custom
spec:
  input:
    dir: /books
  output:
    dir: /out
  variants:
    - tag: fb2
    - tag: sf
      records: "*scifi-*.inp"
`)

	job, err := ParseSplitJob(data, nil)
	require.NoError(t, err)

	require.Len(t, job.Spec.Variants, 2)
	assert.Equal(t, "*fb2-*.inp", job.Spec.Variants[0].Records)
	assert.Equal(t, "sf", job.Spec.Variants[1].Tag)
	assert.Equal(t, "*scifi-*.inp", job.Spec.Variants[1].Records)
	assert.Equal(t, "/out", job.Spec.Output.Dir)
}

func TestParseSplitJob_RejectsWrongKind(t *testing.T) {
	data := []byte(`
kind: MergeJob
metadata:
  name: nope
spec:
  input:
    dir: /books
`)

	_, err := ParseSplitJob(data, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to validate job")
}

func TestParseSplitJob_RequiresInputDir(t *testing.T) {
	data := []byte(`
kind: SplitJob
metadata:
  name: nodir
spec: {}
`)

	_, err := ParseSplitJob(data, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to validate job")
}

func TestParseSplitJob_ExpandsBuiltins(t *testing.T) {
	data := []byte(`
kind: SplitJob
metadata:
  name: nightly
spec:
  input:
    dir: /books
  output:
    dir: /out/${JOB_NAME}
`)

	job, err := ParseSplitJob(data, nil)
	require.NoError(t, err)
	assert.Equal(t, "/out/nightly", job.Spec.Output.Dir)
}

func TestParseSplitJob_ExpandsAllowedEnv(t *testing.T) {
	t.Setenv("BOOKS_ROOT", "/srv/books")

	data := []byte(`
kind: SplitJob
metadata:
  name: nightly
spec:
  input:
    dir: ${BOOKS_ROOT}/flibusta
`)

	job, err := ParseSplitJob(data, []string{"BOOKS_ROOT"})
	require.NoError(t, err)
	assert.Equal(t, "/srv/books/flibusta", job.Spec.Input.Dir)
}

func TestParseSplitJob_RejectsUnknownVariable(t *testing.T) {
	data := []byte(`
kind: SplitJob
metadata:
  name: nightly
spec:
  input:
    dir: ${NOT_ALLOWED}/books
`)

	_, err := ParseSplitJob(data, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in the allowed list")
}

func TestBuildVariables_MissingEnvIsError(t *testing.T) {
	job := v1.SplitJob{Metadata: v1.Metadata{Name: "x"}}

	_, err := BuildVariables(job, []string{"INPXSPLIT_TEST_UNSET_VAR"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not set")
}

func TestExpand(t *testing.T) {
	variables := map[string]string{"JOB_NAME": "nightly"}

	got, err := Expand("/out/${JOB_NAME}/x", variables)
	require.NoError(t, err)
	assert.Equal(t, "/out/nightly/x", got)

	_, err = Expand("${MISSING}", variables)
	assert.Error(t, err)
}

func newRunnerForJob(t *testing.T, job v1.SplitJob) *Runner {
	t.Helper()
	return &Runner{logger: zap.NewNop(), job: job}
}

func TestResolveSource_ExplicitArchive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.inpx")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	r := newRunnerForJob(t, v1.SplitJob{
		Spec: v1.SplitJobSpec{Input: v1.InputSpec{Dir: dir, Archive: "catalog.inpx"}},
	})

	got, err := r.resolveSource()
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestResolveSource_ExplicitArchiveMissing(t *testing.T) {
	r := newRunnerForJob(t, v1.SplitJob{
		Spec: v1.SplitJobSpec{Input: v1.InputSpec{Dir: t.TempDir(), Archive: "missing.inpx"}},
	})

	_, err := r.resolveSource()
	assert.Error(t, err)
}

func TestResolveSource_SingleCandidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flibusta_all_local.inpx")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	r := newRunnerForJob(t, v1.SplitJob{
		Spec: v1.SplitJobSpec{Input: v1.InputSpec{Dir: dir}},
	})

	got, err := r.resolveSource()
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestResolveSource_NoCandidates(t *testing.T) {
	r := newRunnerForJob(t, v1.SplitJob{
		Spec: v1.SplitJobSpec{Input: v1.InputSpec{Dir: t.TempDir()}},
	})

	_, err := r.resolveSource()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .inpx archives found")
}

func TestResolveSource_ManyCandidates(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.inpx"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.inpx"), []byte("x"), 0o644))

	job := v1.SplitJob{Spec: v1.SplitJobSpec{Input: v1.InputSpec{Dir: dir}}}

	// Without a picker the run must fail instead of guessing.
	r := newRunnerForJob(t, job)
	_, err := r.resolveSource()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "set spec.input.archive")

	// With a picker the choice is delegated.
	var seen []string
	r.picker = func(candidates []string) (string, error) {
		seen = candidates
		return candidates[1], nil
	}

	got, err := r.resolveSource()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "b.inpx"), got)
	assert.Len(t, seen, 2)
}
