package projection

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/garnizeh/ats/pkg/models"
)

// DateLayout is the format of date_from and date_to.
const DateLayout = "2006-01-02"

// Filter holds the applicant list criteria as the user typed them.
type Filter struct {
	Job      string
	Status   string
	Search   string
	DateFrom string
	DateTo   string
	MinScore string
}

// Values encodes the filter as query parameters. Blank fields are omitted.
func (f Filter) Values() url.Values {
	v := url.Values{}
	add := func(key, val string) {
		if val = strings.TrimSpace(val); val != "" {
			v.Set(key, val)
		}
	}
	add("job", f.Job)
	add("status", f.Status)
	add("date_from", f.DateFrom)
	add("date_to", f.DateTo)
	add("min_score", f.MinScore)
	add("search", f.Search)
	return v
}

// IsZero reports whether no criterion is set.
func (f Filter) IsZero() bool {
	return len(f.Values()) == 0
}

// Validate checks the non-blank fields.
func (f Filter) Validate() error {
	if s := strings.TrimSpace(f.Job); s != "" {
		if id, err := strconv.ParseInt(s, 10, 64); err != nil || id <= 0 {
			return fmt.Errorf("invalid job id %q", f.Job)
		}
	}
	if s := strings.TrimSpace(f.Status); s != "" {
		if !models.Status(s).Valid() {
			return fmt.Errorf("invalid status %q", f.Status)
		}
	}
	if s := strings.TrimSpace(f.MinScore); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 || n > 100 {
			return fmt.Errorf("min score must be a number between 0 and 100, got %q", f.MinScore)
		}
	}

	var from, to time.Time
	var err error
	if s := strings.TrimSpace(f.DateFrom); s != "" {
		if from, err = time.Parse(DateLayout, s); err != nil {
			return fmt.Errorf("invalid date_from %q, want YYYY-MM-DD", f.DateFrom)
		}
	}
	if s := strings.TrimSpace(f.DateTo); s != "" {
		if to, err = time.Parse(DateLayout, s); err != nil {
			return fmt.Errorf("invalid date_to %q, want YYYY-MM-DD", f.DateTo)
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return fmt.Errorf("date_to %s is before date_from %s", f.DateTo, f.DateFrom)
	}
	return nil
}
