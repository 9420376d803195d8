package application

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/bnema/sentinel-tiles-cli/internal/domain"
	"github.com/bnema/sentinel-tiles-cli/internal/metrics"
	"github.com/bnema/sentinel-tiles-cli/internal/ports"
	"go.uber.org/zap"
)

type SearchPlan struct {
	Collection       string
	BBox             [4]float64
	Filters          map[string]string
	Limit            int
	InitialChunkDays int
	MinChunkDays     int
	// Progress, when set, is called before each chunk query.
	Progress func(SearchProgress)
}

// SearchProgress describes the chunk about to be queried. Items counts what the
// run has found so far.
type SearchProgress struct {
	Chunk    domain.SearchChunk
	Items    int
	Restarts int
}

// unreachableLimit is the number of consecutive unreachable failures, shrinks
// included, after which planning gives up.
const unreachableLimit = 2

type ChunkAttempt struct {
	Chunk   domain.SearchChunk
	Items   int
	Err     error
	Skipped bool
}

func (a ChunkAttempt) MarshalJSON() ([]byte, error) {
	out := struct {
		Range    domain.DateRange `json:"range"`
		SizeDays int              `json:"size_days"`
		Items    int              `json:"items"`
		Skipped  bool             `json:"skipped,omitempty"`
		Error    string           `json:"error,omitempty"`
	}{
		Range:    a.Chunk.Range,
		SizeDays: a.Chunk.SizeDays,
		Items:    a.Items,
		Skipped:  a.Skipped,
	}
	if a.Err != nil {
		out.Error = a.Err.Error()
	}
	return json.Marshal(out)
}

type SearchReport struct {
	Attempts       []ChunkAttempt `json:"attempts"`
	Restarts       int            `json:"restarts"`
	FinalChunkDays int            `json:"final_chunk_days"`
	SkippedChunks  int            `json:"skipped_chunks"`
	// Terminated is set when planning stopped before covering the range.
	Terminated bool  `json:"terminated"`
	Err        error `json:"-"`
}

func (r SearchReport) Failures() int {
	failures := 0
	for _, attempt := range r.Attempts {
		if attempt.Err != nil {
			failures++
		}
	}
	return failures
}

// SearchPlanner issues chunked catalog queries sequentially. A failed query
// halves the chunk size and restarts chunking from the range start; at the
// floor size a failed chunk is skipped. Planning stops once the catalog is
// unreachable twice in a row or ctx is done.
type SearchPlanner struct {
	catalog ports.CatalogSearcher
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewSearchPlanner(catalog ports.CatalogSearcher, logger *zap.Logger, m *metrics.Metrics) *SearchPlanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	return &SearchPlanner{catalog: catalog, logger: logger, metrics: m}
}

func (p *SearchPlanner) withFields(fields ...zap.Field) *SearchPlanner {
	scoped := *p
	scoped.logger = p.logger.With(fields...)
	return &scoped
}

func (p *SearchPlanner) Plan(ctx context.Context, r domain.DateRange, plan SearchPlan, acc *ItemAccumulator) SearchReport {
	floor := plan.MinChunkDays
	if floor < 1 {
		floor = domain.MinChunkDays
	}
	size := plan.InitialChunkDays
	if size < floor {
		size = floor
	}

	report := SearchReport{}
	found := 0
	unreachable := 0
	chunks := domain.Chunks(r, size)
	p.metrics.SearchChunkDays.Set(float64(size))

	for i := 0; i < len(chunks); i++ {
		if err := ctx.Err(); err != nil {
			report.Terminated = true
			report.Err = err
			break
		}

		chunk := chunks[i]
		if plan.Progress != nil {
			plan.Progress(SearchProgress{Chunk: chunk, Items: found, Restarts: report.Restarts})
		}
		items, err := p.catalog.Search(ctx, ports.SearchQuery{
			Collection: plan.Collection,
			BBox:       plan.BBox,
			Range:      chunk.Range,
			Filters:    plan.Filters,
			Limit:      plan.Limit,
		})
		if err == nil {
			unreachable = 0
			acc.Add(items...)
			found += len(items)
			report.Attempts = append(report.Attempts, ChunkAttempt{Chunk: chunk, Items: len(items)})
			p.metrics.SearchQueries.WithLabelValues("ok").Inc()
			p.logger.Info("catalog chunk searched",
				zap.String("range", chunk.Range.String()),
				zap.Int("items", len(items)),
			)
			continue
		}

		queryErr := &domain.CatalogQueryError{Range: chunk.Range, Err: err}
		p.metrics.SearchQueries.WithLabelValues("failed").Inc()

		if errors.Is(err, domain.ErrCatalogUnreachable) {
			unreachable++
		} else {
			unreachable = 0
		}

		if unreachable >= unreachableLimit || ctx.Err() != nil {
			report.Attempts = append(report.Attempts, ChunkAttempt{Chunk: chunk, Err: queryErr})
			report.Terminated = true
			report.Err = queryErr
			p.logger.Error("catalog unreachable, stopping search",
				zap.Error(queryErr),
				zap.Int("items_so_far", acc.Len()),
			)
			break
		}

		if size > floor {
			report.Attempts = append(report.Attempts, ChunkAttempt{Chunk: chunk, Err: queryErr})
			size = domain.ShrinkChunkDays(size, floor)
			chunks = domain.Chunks(r, size)
			i = -1
			report.Restarts++
			p.metrics.SearchChunkDays.Set(float64(size))
			p.logger.Warn("catalog chunk failed, shrinking chunk size and restarting",
				zap.Error(queryErr),
				zap.Int("chunk_days", size),
			)
			continue
		}

		report.Attempts = append(report.Attempts, ChunkAttempt{Chunk: chunk, Err: queryErr, Skipped: true})
		report.SkippedChunks++
		p.metrics.SearchQueries.WithLabelValues("skipped").Inc()
		p.logger.Warn("catalog chunk failed at minimum chunk size, skipping range",
			zap.Error(queryErr),
		)
	}

	report.FinalChunkDays = size
	p.metrics.Items.WithLabelValues("found").Add(float64(found))

	return report
}
