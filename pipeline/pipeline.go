// Package pipeline wires classification, extraction, bingo annotation,
// persistence and webhook dispatch into a single per-line flow. One Pipeline
// instance handles the whole relay feed; Process is safe for concurrent use.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/steamyplank/clanwatch/classify"
	"github.com/steamyplank/clanwatch/telemetry"
)

// Record is one structured clan event bound for the store. Only a subset of
// fields is populated per category; Category decides which table it lands in.
type Record struct {
	RSN      string
	Category classify.Category
	// Drop fields
	Item          string
	BingoEligible bool
	BingoTeam     classify.Team
	// Kill and drop loot in coins, with a display form for webhooks.
	LootValue   int64
	LootDisplay string
	// Personal best fields
	Boss            string
	DurationSeconds float64
	// Message is the decorated line as republished to webhooks.
	Message string
}

// Store persists records. Implementations route on Record.Category.
type Store interface {
	Insert(ctx context.Context, rec Record) error
}

// Dispatcher posts a message to a webhook URL.
type Dispatcher interface {
	Post(ctx context.Context, url, content string) error
}

const dispatchTimeout = 10 * time.Second

// Pipeline processes relayed clan chat lines end to end.
type Pipeline struct {
	extract    *classify.Extractor
	bingo      *classify.Bingo
	store      Store
	dispatcher Dispatcher
	routes     map[string]string
	dispatch   bool
}

// New builds a pipeline. When dispatch is enabled every routable category must
// resolve to a webhook URL; a hole in the route table is a startup error, not
// a runtime surprise.
func New(ex *classify.Extractor, bingo *classify.Bingo, store Store, d Dispatcher, routes map[string]string, dispatch bool) (*Pipeline, error) {
	if ex == nil {
		return nil, fmt.Errorf("pipeline: extractor is required")
	}
	if dispatch {
		if d == nil {
			return nil, fmt.Errorf("pipeline: dispatch enabled without a dispatcher")
		}
		for _, c := range classify.RoutableCategories() {
			key := classify.RouteKey(c)
			if routes[key] == "" {
				return nil, fmt.Errorf("pipeline: no webhook url for route %q", key)
			}
		}
	}
	telemetry.Init()
	return &Pipeline{
		extract:    ex,
		bingo:      bingo,
		store:      store,
		dispatcher: d,
		routes:     routes,
		dispatch:   dispatch,
	}, nil
}

// Process classifies one line and carries it through extraction, persistence
// and dispatch. Errors are contained per line: a malformed line is logged and
// dropped, never returned.
func (p *Pipeline) Process(ctx context.Context, line string) {
	telemetry.LinesProcessed.Inc()
	res := classify.Classify(line)
	telemetry.Classified.WithLabelValues(res.Category.String()).Inc()
	log := telemetry.LoggerWithCorr(ctx).With(
		slog.String("category", res.Category.String()),
	)
	if res.Category == classify.Unrecognized {
		log.Debug("unrecognized line", slog.String("line", line))
		return
	}
	log.Info("classified line", slog.String("line", line))

	rec, err := p.buildRecord(ctx, line, res)
	if err != nil {
		telemetry.ExtractionFailures.Inc()
		log.Warn("extraction failed; dropping line", slog.Any("err", err))
		return
	}

	if rec != nil && p.store != nil {
		if err := p.store.Insert(ctx, *rec); err != nil {
			telemetry.PersistFailures.Inc()
			log.Error("persist failed", slog.Any("err", err))
		} else {
			telemetry.RecordsPersisted.WithLabelValues(res.Category.String()).Inc()
		}
	}

	if p.dispatch && p.dispatcher != nil {
		p.post(ctx, p.routes[res.Route], res.Message, log)
	}
}

// buildRecord extracts the persisted fields for the category, or returns nil
// for categories that only get republished.
func (p *Pipeline) buildRecord(ctx context.Context, line string, res classify.Result) (*Record, error) {
	switch res.Category {
	case classify.PlayerKill, classify.Death, classify.Drop:
		rsn, err := p.extract.PlayerName(line, res.Category)
		if err != nil {
			return nil, err
		}
		rec := &Record{RSN: rsn, Category: res.Category, Message: res.Message}
		loot, err := classify.ParseCoins(p.extract.LootValue(ctx, line, res.Category))
		if err != nil {
			return nil, err
		}
		rec.LootValue = loot
		rec.LootDisplay = classify.FormatCoins(loot)
		if res.Category == classify.Drop {
			item, ok := p.extract.ItemName(line, res.Category)
			if !ok {
				return nil, fmt.Errorf("drop line without item name")
			}
			rec.Item = item
			if p.bingo != nil {
				ann := p.bingo.Annotate(line)
				rec.BingoEligible = ann.Eligible
				rec.BingoTeam = ann.Team
			}
		}
		return rec, nil
	case classify.PersonalBest:
		rsn, err := p.extract.PlayerName(line, res.Category)
		if err != nil {
			return nil, err
		}
		boss, err := p.extract.BossName(line)
		if err != nil {
			return nil, err
		}
		secs, err := p.extract.Duration(line)
		if err != nil {
			return nil, err
		}
		return &Record{
			RSN:             rsn,
			Category:        res.Category,
			Boss:            boss,
			DurationSeconds: secs,
			Message:         res.Message,
		}, nil
	}
	return nil, nil
}

// post fires the webhook without blocking line processing. The send detaches
// from the caller's cancellation but keeps its correlation values.
func (p *Pipeline) post(ctx context.Context, url, content string, log *slog.Logger) {
	telemetry.WebhookSends.Inc()
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
	go func() {
		defer cancel()
		if err := p.dispatcher.Post(sendCtx, url, content); err != nil {
			telemetry.WebhookFailures.Inc()
			log.Warn("webhook post failed", slog.String("url", url), slog.Any("err", err))
		}
	}()
}
