package orbit

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/large-farva/fieldline-engine/internal/classify"
	"github.com/large-farva/fieldline-engine/internal/observability"
	"github.com/large-farva/fieldline-engine/internal/telemetry"
	"github.com/large-farva/fieldline-engine/internal/ws"
)

// Summary counts batch rows per classification.
type Summary struct {
	Rows   int `json:"rows"`
	Closed int `json:"closed"`
	Open   int `json:"open"`
	IMF    int `json:"imf"`
}

func (s *Summary) add(c classify.Classification) {
	s.Rows++
	switch c {
	case classify.Closed:
		s.Closed++
	case classify.Open:
		s.Open++
	default:
		s.IMF++
	}
}

// Batch applies the single-point classifier across the rows of an orbit
// table. Rows are independent, so a fixed worker pool may process them in
// parallel; results land in an index-addressed slice so output order always
// matches input order regardless of worker count.
type Batch struct {
	classifier *classify.Classifier
	log        *log.Logger
	hub        *ws.Hub
	metrics    *observability.Collector
}

// NewBatch creates a batch driver. Hub and metrics may be nil.
func NewBatch(classifier *classify.Classifier, logger *log.Logger, hub *ws.Hub, metrics *observability.Collector) *Batch {
	return &Batch{
		classifier: classifier,
		log:        logger,
		hub:        hub,
		metrics:    metrics,
	}
}

// RunFile classifies every row of the table at inPath and writes the
// augmented table to outPath. The returned summary counts rows per category.
func (b *Batch) RunFile(ctx context.Context, inPath, outPath string, workers int) (Summary, error) {
	t, err := ReadFile(inPath)
	if err != nil {
		return Summary{}, err
	}

	summary, err := b.Run(ctx, t, workers)
	if err != nil {
		return Summary{}, err
	}

	if err := t.WriteFile(outPath); err != nil {
		return Summary{}, err
	}

	b.log.Printf("batch: wrote %d classified rows to %s (closed=%d open=%d IMF=%d)",
		summary.Rows, outPath, summary.Closed, summary.Open, summary.IMF)
	return summary, nil
}

// Run classifies every row of t in place, appending the field_line_type
// column. A malformed row aborts the whole run: the batch is an offline,
// re-runnable job, so there is no per-row recovery above what the classifier
// already absorbs. Cancelling ctx aborts between rows.
func (b *Batch) Run(ctx context.Context, t *Table, workers int) (Summary, error) {
	if err := t.RequireColumns(); err != nil {
		return Summary{}, err
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(t.Rows) && len(t.Rows) > 0 {
		workers = len(t.Rows)
	}

	b.log.Printf("batch: classifying %d rows with %d workers", len(t.Rows), workers)

	classifications := make([]classify.Classification, len(t.Rows))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range t.Rows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			sample, err := t.Sample(i)
			if err != nil {
				return fmt.Errorf("batch aborted: %w", err)
			}

			res := b.classifier.ClassifyPoint(gctx, sample.Position, sample.Drivers)
			classifications[i] = res.Classification
			b.metrics.ObserveBatchRow()

			n := done.Add(1)
			if n%progressEvery == 0 || int(n) == len(t.Rows) {
				b.broadcastProgress(int(n), len(t.Rows))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	var summary Summary
	codes := make([]string, len(classifications))
	for i, c := range classifications {
		summary.add(c)
		codes[i] = strconv.Itoa(c.Code())
	}
	if err := t.AppendColumn(ColClassification, codes); err != nil {
		return Summary{}, err
	}

	b.logSummary(summary)
	return summary, nil
}

// progressEvery controls how often batch progress events are broadcast.
const progressEvery = 25

func (b *Batch) broadcastProgress(done, total int) {
	pct := 0.0
	if total > 0 {
		pct = float64(done) / float64(total) * 100
	}
	b.hub.BroadcastJSON(telemetry.Progress{
		Event:   telemetry.Event{Type: telemetry.EventProgress, TS: telemetry.NowTS()},
		Stage:   "classifying",
		Percent: pct,
		Detail:  fmt.Sprintf("%d/%d rows classified", done, total),
	})
}

// logSummary prints and broadcasts the end-of-run classification counts in
// the numeric-code order the data files use.
func (b *Batch) logSummary(s Summary) {
	b.log.Printf("batch: classification summary: 0 (open): %d, 1 (IMF): %d, 2 (closed): %d",
		s.Open, s.IMF, s.Closed)
	b.hub.BroadcastJSON(telemetry.BatchSummary{
		Event:  telemetry.Event{Type: telemetry.EventBatchSummary, TS: telemetry.NowTS()},
		Rows:   s.Rows,
		Closed: s.Closed,
		Open:   s.Open,
		IMF:    s.IMF,
	})
}
