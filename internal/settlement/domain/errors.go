package settlement

import "errors"

var (
	// ErrInvalidPeriod is returned when a period is not YYYY-MM.
	ErrInvalidPeriod = errors.New("settlement: period must be YYYY-MM")
	// ErrEmptyStationID is returned when a record has no station.
	ErrEmptyStationID = errors.New("settlement: empty station id")
	// ErrNilRecord is returned when saving a nil record.
	ErrNilRecord = errors.New("settlement: nil record")
	// ErrRecordNotFound is returned when updating an unknown record id.
	ErrRecordNotFound = errors.New("settlement: record not found")
	// ErrVersionConflict is returned when an update lost a concurrent race.
	ErrVersionConflict = errors.New("settlement: version conflict")
	// ErrUnknownStation is returned when an edit targets a station outside the working set.
	ErrUnknownStation = errors.New("settlement: station not in working set")
	// ErrUnknownField is returned when an edit names an unsupported field.
	ErrUnknownField = errors.New("settlement: unknown field")
	// ErrInvalidRange is returned when a period range is reversed or too long.
	ErrInvalidRange = errors.New("settlement: invalid period range")
	// ErrLoadFailed is returned when a commit cannot read the stored state it builds on.
	ErrLoadFailed = errors.New("settlement: load failed")
	// ErrSaveFailed is returned when at least one write of a commit failed.
	ErrSaveFailed = errors.New("settlement: save failed")
)
