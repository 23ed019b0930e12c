package storage

import (
	"fmt"
	"path"
	"regexp"
	"time"
)

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildArchivePath returns the object key for one statistics snapshot,
// partitioned by day: <database>/date=YYYY-MM-DD/stats-<unix>.parquet.
func BuildArchivePath(database string, at time.Time) (string, error) {
	if err := validatePathComponent(database, "database"); err != nil {
		return "", err
	}

	ts := at.UTC()
	return path.Join(
		database,
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		fmt.Sprintf("stats-%d.parquet", ts.Unix()),
	), nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
