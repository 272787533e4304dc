package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const (
	productDateOffset = 14
	productTimeOffset = 23
)

// SensorFromPath infers the sensor from a product path suffix.
func SensorFromPath(path string) (Sensor, error) {
	switch strings.ToUpper(filepath.Ext(path)) {
	case ".N1":
		return SensorATS, nil
	case ".E2":
		return SensorAT2, nil
	case ".E1":
		return SensorAT1, nil
	}
	return "", &DataError{Reason: fmt.Sprintf("unknown product suffix in %q", filepath.Base(path))}
}

// ParseProductID extracts the sensor and acquisition time from an ATSR
// product path such as .../ATS_TOA_1PUUPA20030612_193513_...N1.
func ParseProductID(path string) (Sensor, time.Time, error) {
	sensor, err := SensorFromPath(path)
	if err != nil {
		return "", time.Time{}, err
	}
	id := filepath.Base(path)
	if len(id) < productTimeOffset+4 {
		return "", time.Time{}, &DataError{Reason: fmt.Sprintf("product id %q too short", id)}
	}
	stamp := id[productDateOffset:productDateOffset+8] + id[productTimeOffset:productTimeOffset+4]
	t, err := time.Parse("200601021504", stamp)
	if err != nil {
		return "", time.Time{}, &DataError{Reason: fmt.Sprintf("product id %q: %v", id, err)}
	}
	return sensor, t, nil
}

// ProductStem is the product id without directory or extension.
func ProductStem(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		return base[:i]
	}
	return base
}
