package latency

import (
	"context"
	"slices"

	"v2ray-launcher/core/store"
	"v2ray-launcher/internal/debuglog"
)

// Probe measures one endpoint.
type Probe interface {
	Probe(ctx context.Context, ep *store.Endpoint) store.Delay
}

// DelayWriter persists a probe result.
type DelayWriter interface {
	UpdateDelay(ctx context.Context, id int64, d store.Delay) error
}

// Progress is passed to BatchOptions.OnProgress after every probe.
type Progress struct {
	Endpoint *store.Endpoint
	Tested   int
	Total    int
	Success  int
	Failure  int
	// Ranked is the working list sorted by delay. It must not be retained.
	Ranked []*store.Endpoint
}

// BatchOptions configures RunBatch. WorkingSet is the full list the
// candidates were selected from; when set, it is what gets ranked, otherwise
// the candidates are.
type BatchOptions struct {
	Prober     Probe
	Writer     DelayWriter
	OnProgress func(Progress)
	WorkingSet []*store.Endpoint
}

// Result summarizes a batch.
type Result struct {
	Tested    int
	Success   int
	Failure   int
	Cancelled bool
	Ranked    []*store.Endpoint
}

// RunBatch probes candidates one by one in input order. ctx is checked before
// each candidate only; a running probe is always completed and persisted.
// Candidates are updated in place, so they must be the same pointers as the
// matching entries of opts.WorkingSet.
func RunBatch(ctx context.Context, candidates []*store.Endpoint, opts BatchOptions) Result {
	working := opts.WorkingSet
	if working == nil {
		working = candidates
	}
	ranked := slices.Clone(working)
	res := Result{Ranked: ranked}

	for _, ep := range candidates {
		if ctx.Err() != nil {
			res.Cancelled = true
			break
		}

		d := opts.Prober.Probe(ctx, ep)
		ep.Delay = d
		if opts.Writer != nil {
			if err := opts.Writer.UpdateDelay(context.WithoutCancel(ctx), ep.ID, d); err != nil {
				debuglog.WarnLog("RunBatch: failed to store delay of endpoint %d: %v", ep.ID, err)
			}
		}

		res.Tested++
		if d.Succeeded() {
			res.Success++
		} else {
			res.Failure++
		}
		SortByDelay(ranked)

		if opts.OnProgress != nil {
			opts.OnProgress(Progress{
				Endpoint: ep,
				Tested:   res.Tested,
				Total:    len(candidates),
				Success:  res.Success,
				Failure:  res.Failure,
				Ranked:   ranked,
			})
		}
	}

	reason := "completed"
	if res.Cancelled {
		reason = "cancelled"
	}
	batchRunsTotal.WithLabelValues(reason).Inc()
	log := debuglog.WithComponent("latency")
	log.Info().
		Str("reason", reason).
		Int("tested", res.Tested).
		Int("candidates", len(candidates)).
		Int("success", res.Success).
		Int("failure", res.Failure).
		Msg("batch finished")
	return res
}

// SelectAll returns every endpoint.
func SelectAll(endpoints []*store.Endpoint) []*store.Endpoint {
	return slices.Clone(endpoints)
}

// SelectFailed returns the endpoints without a positive measurement.
func SelectFailed(endpoints []*store.Endpoint) []*store.Endpoint {
	var out []*store.Endpoint
	for _, ep := range endpoints {
		if ep.Delay.IsSpecial() {
			out = append(out, ep)
		}
	}
	return out
}

// SortByDelay orders measured endpoints by ascending delay, followed by the
// rest. The sort is stable.
func SortByDelay(endpoints []*store.Endpoint) {
	slices.SortStableFunc(endpoints, func(a, b *store.Endpoint) int {
		as, bs := a.Delay.IsSpecial(), b.Delay.IsSpecial()
		switch {
		case as && bs:
			return 0
		case as:
			return 1
		case bs:
			return -1
		}
		switch {
		case a.Delay.Millis < b.Delay.Millis:
			return -1
		case a.Delay.Millis > b.Delay.Millis:
			return 1
		default:
			return 0
		}
	})
}
