package projection

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/garnizeh/ats/pkg/models"
)

type SortKey string

const (
	SortDate  SortKey = "date"
	SortScore SortKey = "score"
	SortName  SortKey = "name"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort is the client-side ordering of the applicant list.
type Sort struct {
	Key       SortKey
	Direction Direction
}

// DefaultSort is newest first.
var DefaultSort = Sort{Key: SortDate, Direction: Desc}

func (k SortKey) Valid() bool {
	return k == SortDate || k == SortScore || k == SortName
}

// Click returns the sort after a header click on key: the active key flips
// direction, any other key becomes active in ascending order.
func (s Sort) Click(key SortKey) Sort {
	if s.Key == key {
		if s.Direction == Asc {
			return Sort{Key: key, Direction: Desc}
		}
		return Sort{Key: key, Direction: Asc}
	}
	return Sort{Key: key, Direction: Asc}
}

func (s Sort) String() string {
	return string(s.Key) + ":" + string(s.Direction)
}

// ParseSort reads "key" or "key:direction", e.g. "score:desc". A bare key
// sorts ascending.
func ParseSort(v string) (Sort, error) {
	key, dir, found := strings.Cut(strings.ToLower(strings.TrimSpace(v)), ":")
	s := Sort{Key: SortKey(key), Direction: Asc}
	if !s.Key.Valid() {
		return Sort{}, fmt.Errorf("invalid sort key %q (want date, score or name)", key)
	}
	if found {
		switch Direction(dir) {
		case Asc, Desc:
			s.Direction = Direction(dir)
		default:
			return Sort{}, fmt.Errorf("invalid sort direction %q (want asc or desc)", dir)
		}
	}
	return s, nil
}

// Apply returns a sorted copy of in; the input is not modified. Ties keep
// their input order.
func (s Sort) Apply(in []models.Applicant) []models.Applicant {
	out := slices.Clone(in)
	if out == nil {
		out = []models.Applicant{}
	}

	var cmp func(a, b models.Applicant) int
	switch s.Key {
	case SortScore:
		cmp = func(a, b models.Applicant) int { return a.MatchScore - b.MatchScore }
	case SortName:
		col := collate.New(language.Und)
		cmp = func(a, b models.Applicant) int { return col.CompareString(a.Name, b.Name) }
	default:
		cmp = func(a, b models.Applicant) int { return a.CreatedAt.Compare(b.CreatedAt) }
	}

	if s.Direction == Desc {
		asc := cmp
		cmp = func(a, b models.Applicant) int { return asc(b, a) }
	}
	slices.SortStableFunc(out, cmp)
	return out
}
