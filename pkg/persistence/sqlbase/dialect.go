package sqlbase

import (
	"strconv"
	"strings"
	"time"
)

// Dialect captures what differs between the SQL engines sharing this package.
type Dialect struct {
	Name string

	// NumberedPlaceholders rewrites ? into $1, $2 ... before a query is sent.
	NumberedPlaceholders bool

	// MigrationsTable is the DDL creating the schema_migrations bookkeeping table.
	MigrationsTable string

	// Time converts a timestamp into the value bound to a query.
	Time func(time.Time) any
}

// Rebind converts a query written with ? placeholders into the dialect's form.
func (d Dialect) Rebind(query string) string {
	if !d.NumberedPlaceholders {
		return query
	}

	var (
		builder strings.Builder
		n       int
	)

	builder.Grow(len(query) + 8)

	for _, char := range query {
		if char != '?' {
			builder.WriteRune(char)

			continue
		}

		n++

		builder.WriteByte('$')
		builder.WriteString(strconv.Itoa(n))
	}

	return builder.String()
}

func (d Dialect) bindTime(t time.Time) any {
	t = t.UTC()

	if d.Time == nil {
		return t
	}

	return d.Time(t)
}

// TimestampLayout is a fixed width layout, so text columns sort chronologically.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// TextTime formats timestamps for engines that keep them as text.
func TextTime(t time.Time) any {
	return t.UTC().Format(TimestampLayout)
}
