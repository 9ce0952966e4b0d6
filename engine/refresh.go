package engine

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/techpathlabs/milestonedesk/config"
	"github.com/techpathlabs/milestonedesk/model"
	"github.com/techpathlabs/milestonedesk/pkg/logger"
)

// changeKeywords in an assistant reply mean the document store changed.
var changeKeywords = []string{
	"uploaded", "deleted", "created", "updated", "processed",
	"removed", "vectorized", "added", "saved",
}

func mentionsChange(reply string) bool {
	lower := strings.ToLower(reply)
	for _, kw := range changeKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Refresh fetches triggers and, in remote mode, the document listing.
// The two requests run concurrently. A successful listing replaces the
// whole milestone collection and clears the fetch error; a failed one
// leaves the collection untouched and sets ConnectionLost. Results of a
// refresh that started before an already applied one are discarded.
func (e *Engine) Refresh(ctx context.Context) {
	ctx = e.withSession(ctx)

	e.mu.Lock()
	kind := OpRefresh
	if !e.initialized {
		kind = OpLoad
	}
	e.refreshSeq++
	seq := e.refreshSeq
	e.mu.Unlock()

	op := e.ops.begin(kind)
	defer op.Fail(errAbandoned)
	ctx = logger.WithOperation(ctx, op.ID())

	remote := e.cfg.Mode == config.ModeRemote

	var (
		g        errgroup.Group
		docs     []model.Milestone
		triggers []model.Trigger
		trigErr  error
	)
	if remote {
		g.Go(func() error {
			var err error
			docs, err = e.deps.Documents.ListDocuments(ctx)
			return err
		})
	}
	g.Go(func() error {
		triggers, trigErr = e.deps.Triggers.ListTriggers(ctx)
		return nil
	})
	docsErr := g.Wait()

	if trigErr != nil {
		logger.Warn(ctx, "failed to fetch triggers", "error", trigErr)
	}

	e.mu.Lock()
	e.initialized = true
	if seq < e.appliedSeq {
		e.mu.Unlock()
		logger.Debug(ctx, "discarding stale refresh", "seq", seq)
		op.Settle()
		return
	}
	e.appliedSeq = seq

	if trigErr == nil {
		e.triggers = append([]model.Trigger{}, triggers...)
	}
	if remote {
		if docsErr != nil {
			e.fetchErr = ConnectionLost
		} else {
			e.milestones = append([]model.Milestone{}, docs...)
			e.fetchErr = ""
			e.lastRefreshed = e.deps.Now()
		}
	} else if trigErr == nil {
		e.lastRefreshed = e.deps.Now()
	}
	e.mu.Unlock()

	switch {
	case docsErr != nil:
		logger.Warn(ctx, "failed to fetch documents", "error", docsErr)
		op.Fail(docsErr)
	case !remote && trigErr != nil:
		op.Fail(trigErr)
	default:
		logger.Debug(ctx, "refresh applied", "kind", kind, "milestones", len(docs), "triggers", len(triggers))
		op.Settle()
	}
}

// refreshLater starts an out-of-cycle refresh in the background.
func (e *Engine) refreshLater(ctx context.Context) {
	if e.cfg.Mode != config.ModeRemote {
		return
	}
	if !e.background(e.Refresh) {
		logger.Debug(ctx, "engine stopped, skipping refresh")
	}
}
