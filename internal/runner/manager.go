package runner

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"time"

	"github.com/paulmach/osm"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"train-route-analyzer/internal/analysis"
	"train-route-analyzer/internal/db"
	"train-route-analyzer/internal/kinematics"
	mmetrics "train-route-analyzer/internal/metrics"
	"train-route-analyzer/internal/osmxml"
	"train-route-analyzer/internal/overpass"
	"train-route-analyzer/internal/railway"
)

type Fetcher interface {
	Fetch(ctx context.Context, id osm.RelationID, refresh bool) ([]byte, overpass.Source, error)
}

type Store interface {
	Upsert(ctx context.Context, d db.Details) error
	Delete(ctx context.Context, id int64) error
}

type Publisher interface {
	PublishRoute(res analysis.Result) error
}

// Job asks for one relation to be analyzed with the given train.
type Job struct {
	ID      osm.RelationID
	Train   string
	Refresh bool
}

// Outcome is what happened to one job. Err is set when the route document
// could not be obtained or read; analysis failures are in Result.
type Outcome struct {
	Job    Job
	Source overpass.Source
	Result analysis.Result
	Err    error
}

// Manager analyzes routes and hands the results to the store and the
// publisher. Store, publisher and metrics are optional.
type Manager struct {
	fetch      Fetcher
	store      Store
	pub        Publisher
	catalog    *kinematics.Catalog
	workers    int
	passengers int
	metrics    *mmetrics.Collector

	now func() time.Time
}

func NewManager(fetch Fetcher, store Store, pub Publisher, catalog *kinematics.Catalog, workers, passengers int, metrics *mmetrics.Collector) *Manager {
	return &Manager{
		fetch:      fetch,
		store:      store,
		pub:        pub,
		catalog:    catalog,
		workers:    max(workers, 1),
		passengers: passengers,
		metrics:    metrics,
		now:        time.Now,
	}
}

// Run processes jobs concurrently and returns their outcomes in job order.
// A failing route never stops the others.
func (m *Manager) Run(ctx context.Context, jobs []Job) []Outcome {
	type indexed struct {
		i int
		o Outcome
	}
	p := pool.NewWithResults[indexed]().WithMaxGoroutines(m.workers)
	for i, job := range jobs {
		p.Go(func() indexed {
			return indexed{i: i, o: m.Analyze(ctx, job)}
		})
	}
	res := p.Wait()
	sort.Slice(res, func(a, b int) bool { return res[a].i < res[b].i })

	out := make([]Outcome, len(res))
	for k, r := range res {
		out[k] = r.o
	}
	return out
}

// Analyze fetches and analyzes one route.
func (m *Manager) Analyze(ctx context.Context, job Job) Outcome {
	if err := ctx.Err(); err != nil {
		return m.failed(job, err)
	}
	start := time.Now()
	doc, src, err := m.fetch.Fetch(ctx, job.ID, job.Refresh)
	if m.metrics != nil {
		label := string(src)
		if err != nil {
			label = "error"
		}
		m.metrics.FetchObserve(label, time.Since(start))
	}
	if err != nil {
		return m.failed(job, err)
	}
	out := m.AnalyzeDocument(ctx, job, doc)
	out.Source = src
	return out
}

// AnalyzeDocument analyzes job from an OSM XML document already in memory.
func (m *Manager) AnalyzeDocument(ctx context.Context, job Job, doc []byte) Outcome {
	in, err := osmxml.Decode(ctx, bytes.NewReader(doc), job.ID)
	if err != nil {
		out := m.failed(job, err)
		if errors.Is(err, osmxml.ErrRelationNotFound) {
			m.persist(ctx, out.Result)
		}
		return out
	}

	train, ok := m.catalog.Lookup(job.Train)
	if !ok && job.Train != "" {
		log.Warn().Str("train", job.Train).Str("fallback", train.Ref).Msg("unknown train")
	}

	if m.metrics != nil {
		m.metrics.ActiveRoutes.Inc()
	}
	start := time.Now()
	res := analysis.Analyze(in, train, analysis.WithPassengers(m.passengers))
	if m.metrics != nil {
		m.metrics.ActiveRoutes.Dec()
		m.metrics.RouteDone(res.Status.String(), res.Distance, time.Since(start))
	}

	l := log.Info()
	if res.Status == analysis.Failure {
		l = log.Warn().Err(res.Err)
	}
	l.Int64("relation", int64(job.ID)).
		Str("ref", res.Ref).
		Str("status", res.Status.String()).
		Float64("distance_km", res.Distance).
		Float64("travel_time_min", res.Stats.TravelTime).
		Msg("route analyzed")

	m.persist(ctx, res)
	m.publish(res)
	return Outcome{Job: job, Result: res}
}

func (m *Manager) persist(ctx context.Context, res analysis.Result) {
	if m.store == nil {
		return
	}
	var (
		op  string
		err error
	)
	switch {
	case errors.Is(res.Err, railway.ErrUnusableRoute), errors.Is(res.Err, osmxml.ErrRelationNotFound):
		op, err = "delete", m.store.Delete(ctx, int64(res.RouteID))
	case res.Status != analysis.Failure:
		op, err = "upsert", m.store.Upsert(ctx, db.DetailsFromResult(res, m.now()))
	default:
		return
	}
	if err != nil {
		op = "error"
		log.Error().Err(err).Int64("relation", int64(res.RouteID)).Msg("store route details")
	}
	if m.metrics != nil {
		m.metrics.StoreWriteInc(op)
	}
}

func (m *Manager) publish(res analysis.Result) {
	if m.pub == nil {
		return
	}
	if err := m.pub.PublishRoute(res); err != nil {
		log.Error().Err(err).Int64("relation", int64(res.RouteID)).Msg("publish route")
	}
}

func (m *Manager) failed(job Job, err error) Outcome {
	log.Warn().Err(err).Int64("relation", int64(job.ID)).Msg("route unavailable")
	if m.metrics != nil {
		m.metrics.RoutesAnalyzed.WithLabelValues(analysis.Failure.String()).Inc()
	}
	return Outcome{
		Job:    job,
		Result: analysis.Result{Status: analysis.Failure, Err: err, RouteID: job.ID},
		Err:    err,
	}
}
