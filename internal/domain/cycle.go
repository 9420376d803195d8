package domain

const CycleLengthDays = 12

type Cycle struct {
	Range DateRange
	Items []CatalogItem
}

// Name is the directory name of the cycle under the output root.
func (c Cycle) Name() string {
	return c.Range.Start.Format(DateLayout) + "_cycle"
}

// CycleWindows returns the cycle windows anchored at r.Start every
// CycleLengthDays through r.End. The last window keeps its full length even if
// it runs past r.End.
func CycleWindows(r DateRange) []DateRange {
	windows := make([]DateRange, 0, r.Days()/CycleLengthDays+1)
	for anchor := r.Start; !anchor.After(r.End); anchor = AddDays(anchor, CycleLengthDays) {
		windows = append(windows, DateRange{Start: anchor, End: AddDays(anchor, CycleLengthDays-1)})
	}
	return windows
}
