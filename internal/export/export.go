// Package export reads and writes the hour-log CSV interchange
// format. The same shape backs the export subcommand, the HTTP
// download endpoint, and the drop-directory importer, so a file
// written by Write always round-trips through Read.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/daylog/daylog/internal/db"
	"github.com/daylog/daylog/internal/timeutil"
)

var header = []string{"date", "hour", "group", "category", "rating", "notes"}

// Write renders logs as CSV, sorted by (date, hour). Category
// and group names come from the catalog; logs whose category is
// missing export with empty name columns.
func Write(w io.Writer, logs []db.HourLog, cat db.Catalog) error {
	sorted := make([]db.HourLog, len(logs))
	copy(sorted, logs)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Day != sorted[j].Day {
			return sorted[i].Day < sorted[j].Day
		}
		return sorted[i].Hour < sorted[j].Hour
	})

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, l := range sorted {
		var catName, groupName string
		if l.CategoryID != nil {
			if c := cat.CategoryByID(*l.CategoryID); c != nil {
				catName = c.Name
				if c.GroupID != nil {
					if g := cat.GroupByID(*c.GroupID); g != nil {
						groupName = g.Name
					}
				}
			}
		}
		rating := ""
		if l.Rating != nil {
			rating = strconv.Itoa(*l.Rating)
		}
		err := cw.Write([]string{
			l.Day, strconv.Itoa(l.Hour), groupName, catName, rating, l.Notes,
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// columnAliases maps legacy column names from older exports onto
// the current header.
var columnAliases = map[string]string{
	"category_group": "group",
	"energy_level":   "rating",
}

// Read parses CSV in the Write format back into log rows.
// Categories are resolved by name against the catalog; unknown
// names yield rows with no category. Malformed dates or hours
// abort with the offending line number.
func Read(r io.Reader, cat db.Catalog) ([]db.HourLog, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty CSV: missing header row")
	}

	idx := map[string]int{}
	for i, name := range records[0] {
		key := strings.ToLower(strings.TrimSpace(name))
		if alias, ok := columnAliases[key]; ok {
			key = alias
		}
		idx[key] = i
	}
	for _, key := range []string{"date", "hour", "category"} {
		if _, ok := idx[key]; !ok {
			return nil, fmt.Errorf("missing required column: %s", key)
		}
	}

	field := func(row []string, key string) string {
		i, ok := idx[key]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var logs []db.HourLog
	for n, row := range records[1:] {
		line := n + 2 // header is line 1
		if len(row) == 0 {
			continue
		}

		day := field(row, "date")
		if _, err := timeutil.ParseDate(day); err != nil {
			return nil, fmt.Errorf("line %d: bad date %q", line, day)
		}
		hour, err := strconv.Atoi(field(row, "hour"))
		if err != nil || hour < 0 || hour > 23 {
			return nil, fmt.Errorf("line %d: bad hour %q", line, field(row, "hour"))
		}

		l := db.HourLog{Day: day, Hour: hour, Notes: field(row, "notes")}
		if c := cat.CategoryByName(field(row, "category")); c != nil {
			id := c.ID
			l.CategoryID = &id
		}
		if s := field(row, "rating"); s != "" {
			rating, err := strconv.Atoi(s)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad rating %q", line, s)
			}
			l.Rating = &rating
		}
		logs = append(logs, l)
	}
	return logs, nil
}
