package storage

import (
	"fmt"
	"path"
	"regexp"
	"time"
)

const runsRoot = "runs"

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildRunPath returns the key of a run's Parquet export, partitioned by the
// UTC day the run started.
func BuildRunPath(runID string, startedAt time.Time) (string, error) {
	if err := validatePathComponent(runID, "run id"); err != nil {
		return "", err
	}
	day := startedAt.UTC()
	return path.Join(
		runsRoot,
		fmt.Sprintf("date=%04d-%02d-%02d", day.Year(), day.Month(), day.Day()),
		runID+".parquet",
	), nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
