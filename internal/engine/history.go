package engine

import (
	"strings"
	"time"

	"github.com/iliyamo/clinic-treatment-board/internal/model"
)

// prependHistory puts rec first and drops the oldest records past the limit.
func prependHistory(history []model.HistoryRecord, rec model.HistoryRecord) []model.HistoryRecord {
	n := len(history) + 1
	if n > model.HistoryLimit {
		n = model.HistoryLimit
	}
	out := make([]model.HistoryRecord, 0, n)
	out = append(out, rec)
	for _, h := range history {
		if len(out) == n {
			break
		}
		out = append(out, h)
	}
	return out
}

// HistoryQuery filters the archive.  From and To are calendar dates
// (YYYY-MM-DD) compared inclusively in Location; empty bounds are open.
type HistoryQuery struct {
	Name     string
	From     string
	To       string
	Location *time.Location
}

const dateLayout = "2006-01-02"

// SearchHistory returns the records matching q, newest first.  Malformed
// date bounds are ignored.
func SearchHistory(history []model.HistoryRecord, q HistoryQuery) []model.HistoryRecord {
	loc := q.Location
	if loc == nil {
		loc = time.UTC
	}
	name := strings.ToLower(strings.TrimSpace(q.Name))
	from := parseDay(q.From, loc)
	to := parseDay(q.To, loc)

	out := make([]model.HistoryRecord, 0)
	for _, h := range history {
		if name != "" && !strings.Contains(strings.ToLower(h.PatientName), name) {
			continue
		}
		day := h.CompletedAt.In(loc).Format(dateLayout)
		if from != "" && day < from {
			continue
		}
		if to != "" && day > to {
			continue
		}
		out = append(out, h)
	}
	return out
}

func parseDay(v string, loc *time.Location) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	d, err := time.ParseInLocation(dateLayout, v, loc)
	if err != nil {
		return ""
	}
	return d.Format(dateLayout)
}
