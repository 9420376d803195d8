package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

type TaskState string

const (
	TaskCompleted       TaskState = "completed"
	TaskSkippedExisting TaskState = "skipped_existing"
	TaskFailed          TaskState = "failed"
)

// DownloadTask is one (item, band) transfer inside a cycle.
type DownloadTask struct {
	ItemID      string
	Collection  string
	Band        Band
	Href        string
	Destination string
}

type TaskResult struct {
	Task  DownloadTask
	State TaskState
	Path  string
	Bytes int64
	Err   error
}

func (r TaskResult) Succeeded() bool {
	return r.State == TaskCompleted || r.State == TaskSkippedExisting
}

var fileNameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// TileFileName is the file name for an item's band, with path-unsafe characters
// of the identifier replaced.
func TileFileName(itemID string, band Band) string {
	return fileNameReplacer.Replace(fmt.Sprintf("%s_%s.tif", itemID, band))
}

type CycleSummary struct {
	Cycle     DateRange    `json:"cycle"`
	Items     int          `json:"items"`
	Completed int          `json:"completed"`
	Skipped   int          `json:"skipped"`
	Failed    int          `json:"failed"`
	Results   []TaskResult `json:"results"`
}

func (s CycleSummary) Succeeded() int {
	return s.Completed + s.Skipped
}

func (s CycleSummary) Tasks() int {
	return s.Completed + s.Skipped + s.Failed
}

// Summarize counts results by terminal state.
func Summarize(cycle DateRange, items int, results []TaskResult) CycleSummary {
	summary := CycleSummary{Cycle: cycle, Items: items, Results: results}
	for _, result := range results {
		switch result.State {
		case TaskCompleted:
			summary.Completed++
		case TaskSkippedExisting:
			summary.Skipped++
		default:
			summary.Failed++
		}
	}
	return summary
}

type taskResultJSON struct {
	ItemID string    `json:"item_id"`
	Band   Band      `json:"band"`
	State  TaskState `json:"state"`
	Path   string    `json:"path,omitempty"`
	Bytes  int64     `json:"bytes"`
	Kind   string    `json:"kind,omitempty"`
	Error  string    `json:"error,omitempty"`
}

func (r TaskResult) MarshalJSON() ([]byte, error) {
	out := taskResultJSON{
		ItemID: r.Task.ItemID,
		Band:   r.Task.Band,
		State:  r.State,
		Path:   r.Path,
		Bytes:  r.Bytes,
	}
	if r.Err != nil {
		out.Kind = string(DownloadErrorKindOf(r.Err))
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}
