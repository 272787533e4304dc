// Package collocate joins two sensors' flare matches and locates companion
// sensor products.
package collocate

import (
	"errors"
	"path/filepath"
	"slices"
	"strings"

	"github.com/couchcryptid/flare-attribution-engine/internal/domain"
)

// Join inner-joins primary and companion matches on flare id. Flares seen by
// only one sensor are dropped. Output follows the primary order.
func Join[C domain.Locatable](primary, companion []domain.Match[C]) []domain.Collocated[C] {
	byID := make(map[int64][]domain.Match[C], len(companion))
	for _, m := range companion {
		byID[m.FlareID] = append(byID[m.FlareID], m)
	}
	var out []domain.Collocated[C]
	for _, p := range primary {
		for _, c := range byID[p.FlareID] {
			out = append(out, domain.Collocated[C]{FlareID: p.FlareID, Primary: p, Companion: c})
		}
	}
	return out
}

// ErrNoCompanion is wrapped by the FileAssociationError returned when the
// companion glob matches nothing.
var ErrNoCompanion = errors.New("no matching file")

const (
	segregated  = "segregated/"
	stampOffset = 14
	stampLen    = 11 // YYYYMMDD_HH
)

var companionDirs = strings.NewReplacer("aatsr-v3", "atsr2-v3", "ats_toa_1p", "at2_toa_1p")

// CompanionPath locates the ATSR-2 product acquired alongside an AATSR
// product. The companion lives in the parallel atsr2-v3/at2_toa_1p tree and
// shares the primary's date and hour stamp.
func CompanionPath(primary string) (string, error) {
	dir, name := filepath.Split(primary)
	if i := strings.Index(primary, segregated); i >= 0 {
		dir, name = primary[:i], primary[i+len(segregated):]
	}
	dir = companionDirs.Replace(dir)

	if len(name) < stampOffset+stampLen {
		return "", &domain.FileAssociationError{Path: primary, Err: ErrNoCompanion}
	}
	pattern := dir + "*" + name[stampOffset:stampOffset+stampLen] + "*.E2"
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", &domain.FileAssociationError{Path: primary, Pattern: pattern, Err: err}
	}
	if len(matches) == 0 {
		return "", &domain.FileAssociationError{Path: primary, Pattern: pattern, Err: ErrNoCompanion}
	}
	slices.Sort(matches)
	return matches[0], nil
}
