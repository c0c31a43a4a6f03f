package store

import (
	"fmt"
	"time"
)

// timeLayout is fixed-width so SQLite TEXT columns sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

// timeArg converts t for a timestamp column: TIMESTAMPTZ on PostgreSQL,
// fixed-layout TEXT on SQLite.
func (db *DB) timeArg(t time.Time) any {
	if db.driver == DriverPostgres {
		return t.UTC()
	}
	return formatTime(t)
}

// timeColumn scans either timestamp representation into a time.Time.
type timeColumn struct {
	dst *time.Time
}

func scanTime(dst *time.Time) timeColumn {
	return timeColumn{dst: dst}
}

func (c timeColumn) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*c.dst = v.UTC()
	case string:
		t, err := parseTime(v)
		if err != nil {
			return err
		}
		*c.dst = t
	case []byte:
		t, err := parseTime(string(v))
		if err != nil {
			return err
		}
		*c.dst = t
	case nil:
		*c.dst = time.Time{}
	default:
		return fmt.Errorf("unsupported time value %T", src)
	}
	return nil
}
