package settlement

import (
	"fmt"
	"strings"
)

// RecordVersion is the id and version of a record as a client loaded it.
// An empty id with version 0 means the station had no stored record.
type RecordVersion struct {
	StationID string `json:"stationId"`
	ID        string `json:"id,omitempty"`
	Version   int    `json:"version"`
}

// VersionConflictError lists the stations whose stored record changed
// after the client loaded it.
type VersionConflictError struct {
	Stations []string
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("%s: stations=%s", ErrVersionConflict, strings.Join(e.Stations, ","))
}

func (e *VersionConflictError) Unwrap() error { return ErrVersionConflict }

// CheckVersions compares expected against the working set. Stations not
// listed in expected are not checked.
func (ws *WorkingSet) CheckVersions(expected []RecordVersion) error {
	var stale []string
	for _, want := range expected {
		rec := ws.Find(want.StationID)
		if rec == nil {
			return fmt.Errorf("%w: %s", ErrUnknownStation, want.StationID)
		}
		if rec.ID != want.ID || rec.Version != want.Version {
			stale = append(stale, want.StationID)
		}
	}
	if len(stale) > 0 {
		return &VersionConflictError{Stations: stale}
	}
	return nil
}
