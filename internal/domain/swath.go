package domain

import (
	"fmt"
	"time"
)

// BandName identifies a band array within a swath.
type BandName string

const (
	BandLatitude   BandName = "latitude"
	BandLongitude  BandName = "longitude"
	BandSWIR       BandName = "reflec_nadir_1600"
	BandMWIR       BandName = "btemp_nadir_0370"
	BandSolarElev  BandName = "sun_elev_nadir"
	BandViewElev   BandName = "view_elev_nadir"
	BandCloudFlags BandName = "cloud_flags_nadir"
)

// RequiredBands lists every band an orbit needs for detection.
var RequiredBands = []BandName{
	BandLatitude, BandLongitude, BandSWIR, BandMWIR, BandSolarElev, BandViewElev, BandCloudFlags,
}

// Sensor identifies the instrument that produced a swath.
type Sensor string

const (
	SensorAT1 Sensor = "at1"
	SensorAT2 Sensor = "at2"
	SensorATS Sensor = "ats"
	SensorSLS Sensor = "sls"
)

// Swath is one decoded sensor pass.
type Swath struct {
	ID      string
	Sensor  Sensor
	Time    time.Time
	Lines   int
	Samples int
	Bands   map[BandName]Band
}

// Band returns the named band, or a *DataError if it is absent or its shape
// disagrees with the swath.
func (s *Swath) Band(name BandName) (Band, error) {
	b, ok := s.Bands[name]
	if !ok {
		return Band{}, &DataError{Band: name, Reason: "missing"}
	}
	if !b.Valid() {
		return Band{}, &DataError{Band: name, Reason: fmt.Sprintf("%d values for shape %dx%d", len(b.Values), b.Lines, b.Samples)}
	}
	if b.Lines != s.Lines || b.Samples != s.Samples {
		return Band{}, &DataError{Band: name, Reason: fmt.Sprintf("shape %dx%d, swath is %dx%d", b.Lines, b.Samples, s.Lines, s.Samples)}
	}
	return b, nil
}

// Validate checks that every named band is present and correctly shaped.
func (s *Swath) Validate(names ...BandName) error {
	if s.Lines <= 0 || s.Samples <= 0 {
		return &DataError{Reason: fmt.Sprintf("empty swath %dx%d", s.Lines, s.Samples)}
	}
	for _, n := range names {
		if _, err := s.Band(n); err != nil {
			return err
		}
	}
	return nil
}

// Meta returns the orbit metadata stamped on aggregated rows.
func (s *Swath) Meta() OrbitMeta {
	t := s.Time.UTC()
	return OrbitMeta{
		Year:   t.Year(),
		Month:  int(t.Month()),
		Day:    t.Day(),
		HHMM:   t.Hour()*100 + t.Minute(),
		Sensor: s.Sensor,
	}
}

// OrbitMeta is the per-orbit metadata attached to every aggregated row.
type OrbitMeta struct {
	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Day    int    `json:"day"`
	HHMM   int    `json:"hhmm"`
	Sensor Sensor `json:"sensor"`
}

// Date is the orbit's calendar day at midnight UTC. Registry activity is
// evaluated against this date.
func (m OrbitMeta) Date() time.Time {
	return time.Date(m.Year, time.Month(m.Month), m.Day, 0, 0, 0, 0, time.UTC)
}
