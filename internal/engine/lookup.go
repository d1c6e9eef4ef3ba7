package engine

import (
	"fmt"

	"github.com/fortisim/fortisim/internal/population"
)

// Row is one bin of a lookup table. Age bounds are in years,
// closed-left open-right; year bounds are calendar years, closed-left
// open-right. An empty Sex matches both sexes.
type Row struct {
	Sex       population.Sex
	AgeStart  float64
	AgeEnd    float64
	YearStart int
	YearEnd   int
	Value     float64
}

// Lookup maps (sex, age, year) strata to values. Rows are scanned in
// order; the first matching bin wins, and a miss is a data error rather
// than a silent default.
type Lookup struct {
	rows []Row
}

// NewLookup builds a table from its rows.
func NewLookup(rows []Row) *Lookup {
	return &Lookup{rows: rows}
}

// Scalar builds a table returning the same value for every stratum.
func Scalar(v float64) *Lookup {
	return &Lookup{rows: []Row{{AgeEnd: 1e9, YearEnd: 1 << 31, Value: v}}}
}

// At returns the value for an individual's stratum.
func (l *Lookup) At(sex population.Sex, age float64, year int) (float64, error) {
	for _, r := range l.rows {
		if r.Sex != "" && r.Sex != sex {
			continue
		}
		if age < r.AgeStart || age >= r.AgeEnd {
			continue
		}
		if year < r.YearStart || year >= r.YearEnd {
			continue
		}
		return r.Value, nil
	}
	return 0, fmt.Errorf("engine: lookup has no bin for sex=%s age=%.4f year=%d", sex, age, year)
}
