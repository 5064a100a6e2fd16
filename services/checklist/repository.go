// Package checklist implements the report repository: machine and item
// lookups, report and detail persistence with max+1 ids, checklist
// submission and the supervisor dashboard.
package checklist

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"checkround/pkg/store"
)

const tracerName = "checkround/services/checklist"

// Options configures a Repository.
type Options struct {
	// Now defaults to time.Now.
	Now func() time.Time
	// Location decides which calendar day counts as today. Defaults to time.Local.
	Location *time.Location
	// StrictReferences rejects reports for unknown machines and details for unknown reports or items.
	StrictReferences bool
	Metrics          *Metrics
	Logger           zerolog.Logger
}

// Repository owns every checklist container in one store. Methods are
// safe for concurrent use within a process.
type Repository struct {
	store   *store.Store
	now     func() time.Time
	loc     *time.Location
	strict  bool
	metrics *Metrics
	logger  zerolog.Logger
	tracer  trace.Tracer

	// mu serialises read-modify-write cycles so max+1 ids cannot collide.
	mu sync.Mutex
}

func New(s *store.Store, opts Options) (*Repository, error) {
	if s == nil {
		return nil, errors.New("checklist: store is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Repository{
		store:   s,
		now:     opts.Now,
		loc:     opts.Location,
		strict:  opts.StrictReferences,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		tracer:  otel.Tracer(tracerName),
	}, nil
}

// track starts a span for op and returns a func that ends it with the operation's error.
func (r *Repository) track(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	started := time.Now()
	ctx, span := r.tracer.Start(ctx, "checklist."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		r.metrics.observe(op, started, err)
		r.logger.Debug().
			Str("op", op).
			Dur("elapsed", time.Since(started)).
			AnErr("error", err).
			Msg("repository operation")
	}
}

// nextID returns max(existing ids)+1, or 1 for an empty container.
func nextID[T any](records []T, id func(T) int) int {
	highest := 0
	for _, rec := range records {
		if v := id(rec); v > highest {
			highest = v
		}
	}
	return highest + 1
}

func machineID(m Machine) int { return m.ID }
func itemID(i ChecklistItem) int { return i.ID }
func reportID(r ChecklistReport) int { return r.ID }
func detailID(d ChecklistDetail) int { return d.ID }
