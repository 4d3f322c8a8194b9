package runner

import (
	"errors"
	"fmt"
	"os"
	"time"

	v1 "github.com/inpxtools/inpxsplit/apis/v1"
	"github.com/inpxtools/inpxsplit/internal/engine"
)

// BuildVariables returns the ${VAR} expansion set available to job path
// fields: built-ins plus explicitly allow-listed environment variables.
// An allow-listed variable that is not set is an error.
func BuildVariables(job v1.SplitJob, allowedEnv []string) (map[string]string, error) {
	variables := map[string]string{
		"JOB_NAME": job.Metadata.Name,
		"JOB_DATE": time.Now().UTC().Format(engine.DateStampBasic),
	}

	var errs error
	for _, envName := range allowedEnv {
		val, ok := os.LookupEnv(envName)
		if !ok {
			errs = errors.Join(errs, fmt.Errorf("environment variable %q is not set", envName))
			continue
		}
		variables[envName] = val
	}

	if errs != nil {
		return nil, errs
	}

	return variables, nil
}

// Expand replaces ${VAR} references in the input string using the provided
// variables map. A reference outside the map is an error, never a silent
// empty substitution.
func Expand(value string, variables map[string]string) (string, error) {
	var errs error

	result := os.Expand(value, func(key string) string {
		if val, ok := variables[key]; ok {
			return val
		}
		errs = errors.Join(errs, fmt.Errorf("variable %q is not in the allowed list", key))
		return ""
	})

	if errs != nil {
		return "", errs
	}

	return result, nil
}

// expandJobPaths expands the path-valued fields of the job in place.
func expandJobPaths(job *v1.SplitJob, variables map[string]string) error {
	fields := []*string{&job.Spec.Input.Dir, &job.Spec.Input.Archive}
	if job.Spec.Output != nil {
		fields = append(fields, &job.Spec.Output.Dir)
	}

	for _, field := range fields {
		expanded, err := Expand(*field, variables)
		if err != nil {
			return err
		}
		*field = expanded
	}

	return nil
}
