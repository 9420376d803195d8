package domain

const (
	DefaultChunkDays = 24
	MinChunkDays     = 7
)

// SearchChunk is one catalog query window. SizeDays is the chunk size that was
// in effect when the chunk was generated.
type SearchChunk struct {
	Range    DateRange
	SizeDays int
}

// Chunks splits r into consecutive windows of sizeDays, clamping the last one to
// r.End. The result covers every date of r exactly once.
func Chunks(r DateRange, sizeDays int) []SearchChunk {
	if sizeDays < 1 {
		sizeDays = 1
	}

	chunks := make([]SearchChunk, 0, r.Days()/sizeDays+1)
	for cursor := r.Start; !cursor.After(r.End); {
		end := AddDays(cursor, sizeDays-1)
		if end.After(r.End) {
			end = r.End
		}
		chunks = append(chunks, SearchChunk{
			Range:    DateRange{Start: cursor, End: end},
			SizeDays: sizeDays,
		})
		cursor = AddDays(end, 1)
	}

	return chunks
}

// ShrinkChunkDays halves size without going below floor.
func ShrinkChunkDays(size, floor int) int {
	next := size / 2
	if next < floor {
		return floor
	}
	return next
}
