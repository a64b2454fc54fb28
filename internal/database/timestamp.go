package database

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// DateTimeLayout is the DATETIME text form both engines accept.
const DateTimeLayout = "2006-01-02 15:04:05"

var parseLayouts = []string{
	DateTimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05",
}

// Timestamp scans a DATETIME column regardless of how the driver delivers
// it: time.Time (mysql with parseTime, sqlite on typed columns), string,
// or []byte.
type Timestamp struct {
	time.Time
}

// Now returns the current UTC time truncated to whole seconds.
func Now() Timestamp { return Timestamp{time.Now().UTC().Truncate(time.Second)} }

// Scan implements sql.Scanner.
func (t *Timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	}
	return fmt.Errorf("database: cannot scan %T into Timestamp", src)
}

// Value implements driver.Valuer using the portable DATETIME text form.
func (t Timestamp) Value() (driver.Value, error) {
	return t.UTC().Format(DateTimeLayout), nil
}

func (t *Timestamp) parse(s string) error {
	for _, l := range parseLayouts {
		if p, err := time.Parse(l, s); err == nil {
			t.Time = p.UTC()
			return nil
		}
	}
	return fmt.Errorf("database: unrecognised timestamp %q", s)
}
