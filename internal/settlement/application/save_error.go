package application

import (
	"fmt"
	"sort"
	"strings"

	settlement "cng-console/internal/settlement/domain"
)

// SaveError reports the stations whose write failed during a commit.
// Writes that succeeded in the same commit are kept.
type SaveError struct {
	Period settlement.Period
	Saved  int
	Failed map[string]error
}

func (e *SaveError) Error() string {
	stations := e.FailedStations()
	return fmt.Sprintf("%s: period=%s failed=%d saved=%d stations=%s",
		settlement.ErrSaveFailed, e.Period, len(stations), e.Saved, strings.Join(stations, ","))
}

// Unwrap exposes ErrSaveFailed and every underlying write error.
func (e *SaveError) Unwrap() []error {
	errs := []error{settlement.ErrSaveFailed}
	for _, id := range e.FailedStations() {
		errs = append(errs, e.Failed[id])
	}
	return errs
}

// FailedStations returns the failed station ids in sorted order.
func (e *SaveError) FailedStations() []string {
	ids := make([]string, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
