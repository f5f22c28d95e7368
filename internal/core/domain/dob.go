package domain

import (
	"fmt"
	"strings"
	"time"
)

// dobLayouts are tried in order; the first strict match wins. US month-first
// forms take precedence over day-first, matching the source payroll files.
var dobLayouts = []string{
	"01-02-2006",
	"02-01-2006",
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"2006/01/02",
}

// NormalizeDOB converts a date of birth from any accepted source format into
// ISO form (YYYY-MM-DD), which is what the provider requires. An input that
// matches no layout is an error; the caller fails that payment only.
func NormalizeDOB(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("date of birth is empty")
	}
	for _, layout := range dobLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("unparseable date of birth %q", raw)
}
