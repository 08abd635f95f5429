package review

import "fmt"

// DefaultIntervals is the review ladder in days. Stage 0 reviews after
// one day, stage 1 after two, and so on.
var DefaultIntervals = []int{1, 2, 4, 7, 15, 30, 60}

// IntervalTable maps a stage to the number of days until the next
// review. Stages past the end of the table reuse the last entry, so
// long-lived notes settle into the longest cadence instead of falling
// off the ladder.
type IntervalTable []int

// NewIntervalTable validates the day counts and returns a table.
// An empty table or a non-positive entry is a configuration error.
func NewIntervalTable(days []int) (IntervalTable, error) {
	if len(days) == 0 {
		return nil, fmt.Errorf("interval table must not be empty")
	}
	for i, d := range days {
		if d <= 0 {
			return nil, fmt.Errorf("interval table entry %d must be positive, got %d", i, d)
		}
	}
	table := make(IntervalTable, len(days))
	copy(table, days)
	return table, nil
}

// ForStage returns the interval in days for the given stage, clamping
// to the last entry when the stage is at or beyond the table length.
func (t IntervalTable) ForStage(stage int) int {
	if stage >= len(t) {
		return t[len(t)-1]
	}
	return t[stage]
}
