// Package status decides, per request, whether to serve the fresh cache,
// attempt an upstream refetch, fall back to a stale snapshot, or fall back to
// the persisted last-known record. It is the only writer of the status cache
// and of the persisted server record.
package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wildwest-rp/stagecoach/internal/config"
	"github.com/wildwest-rp/stagecoach/internal/directory"
	"github.com/wildwest-rp/stagecoach/internal/models"
	"github.com/wildwest-rp/stagecoach/internal/statuscache"
	"golang.org/x/sync/singleflight"
)

// ErrNotConfigured means the persisted server record has never been created.
// This is the only condition the status endpoint reports as an outright
// failure; every upstream problem degrades to a cached or fallback body.
var ErrNotConfigured = errors.New("server status record not configured")

// Fetcher performs one independent upstream fetch attempt.
type Fetcher interface {
	FetchStatus(ctx context.Context, code string) (directory.Status, error)
}

// RecordStore reads and writes the durable server record.
type RecordStore interface {
	LoadStatus() (*models.ServerStatus, error)
	SaveStatus(currentPlayers, maxPlayers int, online bool, at time.Time) error
}

// Orchestrator owns the freshness cache and the persisted record, and
// serializes expensive refetches with a single-flight group so concurrent
// callers arriving on an expired cache share one upstream attempt.
type Orchestrator struct {
	fetcher     Fetcher
	store       RecordStore
	cache       *statuscache.Cache
	now         func() time.Time
	serverCode  string
	gameType    string
	mapName     string
	connectHost string
	freshFor    time.Duration
	flight      singleflight.Group
}

// New builds an orchestrator. The cache starts empty; the first request will
// trigger a refetch.
func New(fetcher Fetcher, store RecordStore, cfg config.Status) *Orchestrator {
	return &Orchestrator{
		fetcher:     fetcher,
		store:       store,
		cache:       &statuscache.Cache{},
		now:         time.Now,
		serverCode:  cfg.ServerCode,
		gameType:    cfg.GameType,
		mapName:     cfg.MapName,
		connectHost: cfg.ConnectHost,
		freshFor:    cfg.FreshFor,
	}
}

// Current returns the status body for the configured server.
//
// Upstream fetch failures never surface as errors here; callers always get
// one of the live, cached or fallback shapes. The returned error is either
// ErrNotConfigured or a persistence failure.
func (o *Orchestrator) Current(ctx context.Context) (models.StatusResponse, error) {
	record, err := o.store.LoadStatus()
	if err != nil {
		return models.StatusResponse{}, fmt.Errorf("load server record: %w", err)
	}
	if record == nil {
		return models.StatusResponse{}, ErrNotConfigured
	}

	if o.cache.IsFresh(o.now(), o.freshFor) {
		snapshot, _, _ := o.cache.Get()
		cacheHits.Inc()
		responses.WithLabelValues("live").Inc()
		return o.liveResponse(record, snapshot), nil
	}

	// Coalesce concurrent refetches: while one upstream attempt is in flight
	// for this server, later callers wait for and share its result instead of
	// opening their own browser pages.
	result, err, _ := o.flight.Do(o.serverCode, func() (any, error) {
		return o.refresh(ctx, record)
	})
	if err != nil {
		return models.StatusResponse{}, err
	}

	return result.(models.StatusResponse), nil
}

// refresh runs one upstream attempt and applies the fallback hierarchy.
// Runs inside the single-flight group.
func (o *Orchestrator) refresh(ctx context.Context, record *models.ServerStatus) (models.StatusResponse, error) {
	refetchAttempts.Inc()

	// Detached from the caller's context: a client that disconnects mid-fetch
	// does not abort the attempt, and a late success still fills the cache
	// for the next request.
	snapshot, err := o.fetcher.FetchStatus(context.WithoutCancel(ctx), o.serverCode)
	if err == nil {
		o.cache.Put(snapshot)
		if err := o.store.SaveStatus(snapshot.CurrentPlayers, snapshot.MaxPlayers, true, snapshot.CapturedAt); err != nil {
			return models.StatusResponse{}, fmt.Errorf("save server record: %w", err)
		}

		responses.WithLabelValues("live").Inc()
		return o.liveResponse(record, snapshot), nil
	}

	refetchFailures.Inc()
	log.Warn().Err(err).Str("server_code", o.serverCode).Msg("Upstream status fetch failed")

	// Stale-but-known-good beats flapping the durable record to offline over
	// a transient scrape failure, so the record is left untouched here.
	if stale, _, ok := o.cache.Get(); ok {
		responses.WithLabelValues("cached").Inc()
		resp := o.liveResponse(record, stale)
		resp.Cached = true
		return resp, nil
	}

	// Nothing was ever captured: record the outage and serve the configured
	// record with zero players.
	now := o.now()
	if err := o.store.SaveStatus(0, record.MaxPlayers, false, now); err != nil {
		return models.StatusResponse{}, fmt.Errorf("save server record: %w", err)
	}

	responses.WithLabelValues("fallback").Inc()
	return o.fallbackResponse(record, now), nil
}

// Invalidate drops the cached snapshot so the next request refetches.
func (o *Orchestrator) Invalidate() {
	o.cache.Invalidate()
	log.Info().Str("server_code", o.serverCode).Msg("Status cache invalidated")
}

// Record returns the raw persisted server record, or ErrNotConfigured.
func (o *Orchestrator) Record() (*models.ServerStatus, error) {
	record, err := o.store.LoadStatus()
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNotConfigured
	}
	return record, nil
}

// liveResponse merges a captured snapshot with the static fields of the
// persisted record.
func (o *Orchestrator) liveResponse(record *models.ServerStatus, s directory.Status) models.StatusResponse {
	resp := o.baseResponse(record)
	resp.ServerName = s.Hostname
	resp.MaxPlayers = s.MaxPlayers
	resp.CurrentPlayers = s.CurrentPlayers
	resp.IsOnline = true
	resp.LastUpdated = s.CapturedAt.UTC().Format(time.RFC3339)
	return resp
}

// fallbackResponse is built entirely from the persisted record after an
// offline write.
func (o *Orchestrator) fallbackResponse(record *models.ServerStatus, at time.Time) models.StatusResponse {
	resp := o.baseResponse(record)
	resp.ServerName = record.ServerName
	resp.MaxPlayers = record.MaxPlayers
	resp.CurrentPlayers = 0
	resp.IsOnline = false
	resp.LastUpdated = at.UTC().Format(time.RFC3339)
	resp.Fallback = true
	return resp
}

func (o *Orchestrator) baseResponse(record *models.ServerStatus) models.StatusResponse {
	return models.StatusResponse{
		ServerDescription: record.ServerDescription,
		ConnectURL:        fmt.Sprintf("%s/%s", o.connectHost, o.serverCode),
		ConnectCode:       fmt.Sprintf("connect %s", o.serverCode),
		ServerCode:        o.serverCode,
		GameType:          o.gameType,
		MapName:           o.mapName,
	}
}
