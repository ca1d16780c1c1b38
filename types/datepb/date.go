// Package datepb is the google.type.Date message: a whole or partial
// calendar date with no time of day or time zone.
package datepb

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/anirudhraja/wirecodec"
)

// Date is a calendar date. A zero Year, Month or Day means that part is
// unspecified: {0, 3, 14} is a yearly anniversary, {2024, 0, 0} a year.
type Date struct {
	Year  int32 `wirecodec:"year,1" json:"year,omitempty"`
	Month int32 `wirecodec:"month,2" json:"month,omitempty"`
	Day   int32 `wirecodec:"day,3" json:"day,omitempty"`
}

func (*Date) ProtoMessageName() string { return "google.type.Date" }

func (d *Date) GetYear() int32 {
	if d == nil {
		return 0
	}
	return d.Year
}

func (d *Date) GetMonth() int32 {
	if d == nil {
		return 0
	}
	return d.Month
}

func (d *Date) GetDay() int32 {
	if d == nil {
		return 0
	}
	return d.Day
}

func (d *Date) Marshal() ([]byte, error) { return wirecodec.Marshal(d) }

func (d *Date) Unmarshal(data []byte) error { return wirecodec.Unmarshal(data, d) }

// IsComplete reports whether year, month and day are all set.
func (d *Date) IsComplete() bool {
	return d.GetYear() != 0 && d.GetMonth() != 0 && d.GetDay() != 0
}

// Time returns midnight of the date in loc. Partial dates and dates that do
// not exist in the calendar are rejected.
func (d *Date) Time(loc *time.Location) (time.Time, error) {
	if !d.IsComplete() {
		return time.Time{}, errors.Newf("date %s is not complete", d)
	}
	if loc == nil {
		loc = time.UTC
	}
	t := time.Date(int(d.Year), time.Month(d.Month), int(d.Day), 0, 0, 0, 0, loc)
	if t.Year() != int(d.Year) || t.Month() != time.Month(d.Month) || t.Day() != int(d.Day) {
		return time.Time{}, errors.Newf("date %s does not exist", d)
	}
	return t, nil
}

// FromTime returns the calendar date of t in its own location.
func FromTime(t time.Time) *Date {
	return &Date{Year: int32(t.Year()), Month: int32(t.Month()), Day: int32(t.Day())}
}

func (d *Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.GetYear(), d.GetMonth(), d.GetDay())
}
