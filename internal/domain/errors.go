package domain

import (
	"errors"
	"fmt"
)

// DataError reports a required band that is missing or malformed. It is fatal
// for the orbit being processed and never for its siblings.
type DataError struct {
	Band   BandName
	Reason string
}

func (e *DataError) Error() string {
	if e.Band == "" {
		return "data error: " + e.Reason
	}
	return fmt.Sprintf("data error: band %s: %s", e.Band, e.Reason)
}

// FileAssociationError reports a companion sensor file that could not be
// located. It signals a missing external resource, not malformed data.
type FileAssociationError struct {
	Path    string
	Pattern string
	Err     error
}

func (e *FileAssociationError) Error() string {
	msg := fmt.Sprintf("no companion file for %s (pattern %q)", e.Path, e.Pattern)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FileAssociationError) Unwrap() error { return e.Err }

// IsDataError reports whether err wraps a *DataError.
func IsDataError(err error) bool {
	var de *DataError
	return errors.As(err, &de)
}

// IsFileAssociationError reports whether err wraps a *FileAssociationError.
func IsFileAssociationError(err error) bool {
	var fe *FileAssociationError
	return errors.As(err, &fe)
}
