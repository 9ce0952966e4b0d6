package engine

import (
	"context"
	"fmt"
	"path"

	"github.com/techpathlabs/milestonedesk/config"
	"github.com/techpathlabs/milestonedesk/export"
	"github.com/techpathlabs/milestonedesk/model"
	"github.com/techpathlabs/milestonedesk/pkg/logger"
)

// Delete removes a milestone. With the remote delete mode the document is
// deleted on the server first and the row is kept if that fails. The bool
// reports whether the row was removed.
func (e *Engine) Delete(ctx context.Context, id string) (bool, error) {
	m, ok := e.Milestone(id)
	if !ok {
		return false, ErrNotFound
	}
	ctx = e.withSession(ctx)

	op := e.ops.begin(OpDelete)
	defer op.Fail(errAbandoned)
	ctx = logger.WithOperation(ctx, op.ID())

	label := m.Name
	if label == "" {
		label = m.ID
	}

	if e.cfg.DeleteMode == config.DeleteRemote {
		if err := e.deps.Documents.DeleteDocument(ctx, m.ID); err != nil {
			logger.Warn(ctx, "failed to delete document", "milestone_id", m.ID, "error", err)
			e.log.Add("Delete failed: " + label)
			op.Fail(err)
			return false, nil
		}
	}

	e.mu.Lock()
	removed := false
	for i, cur := range e.milestones {
		if cur.ID == id {
			e.milestones = append(e.milestones[:i:i], e.milestones[i+1:]...)
			removed = true
			break
		}
	}
	e.mu.Unlock()

	if removed {
		e.log.Add("Milestone deleted: " + label)
		logger.Info(ctx, "milestone deleted", "milestone_id", id, "mode", e.cfg.DeleteMode)
	}
	op.Settle()
	return removed, nil
}

// CreateExport renders the current milestones as CSV, stores the content
// and prepends the export to the export list.
func (e *Engine) CreateExport(ctx context.Context) (model.ExportFile, error) {
	ctx = e.withSession(ctx)

	op := e.ops.begin(OpExport)
	defer op.Fail(errAbandoned)
	ctx = logger.WithOperation(ctx, op.ID())

	records := e.Milestones()
	content := export.GenerateCSV(records, e.cfg.Mode)
	now := e.deps.Now()

	file := model.ExportFile{
		ID:          e.deps.NewID(),
		Filename:    export.Filename(now),
		CreatedAt:   now,
		RecordCount: len(records),
	}
	file.ObjectKey = path.Join("exports", e.cfg.SessionID, file.ID, file.Filename)

	if err := e.deps.Artifacts.Put(ctx, file.ObjectKey, []byte(content), export.ContentType); err != nil {
		logger.Error(ctx, "failed to store export", "key", file.ObjectKey, "error", err)
		e.log.Add("Export failed")
		op.Fail(err)
		return model.ExportFile{}, fmt.Errorf("failed to store export: %w", err)
	}

	e.mu.Lock()
	e.exports = append([]model.ExportFile{file}, e.exports...)
	e.mu.Unlock()

	e.log.Add(fmt.Sprintf("CSV export created: %d records", file.RecordCount))
	logger.Info(ctx, "export created", "filename", file.Filename, "records", file.RecordCount)
	op.Settle()
	return file, nil
}

// Export looks up an export by id.
func (e *Engine) Export(id string) (model.ExportFile, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, f := range e.exports {
		if f.ID == id {
			return f, true
		}
	}
	return model.ExportFile{}, false
}

// ExportURL returns a fresh download link for an export, or "" when the
// artifact store serves no direct links.
func (e *Engine) ExportURL(ctx context.Context, id string) (string, error) {
	file, ok := e.Export(id)
	if !ok {
		return "", ErrNotFound
	}
	url, err := e.deps.Artifacts.URL(ctx, file.ObjectKey)
	if err != nil {
		return "", fmt.Errorf("failed to link export: %w", err)
	}
	return url, nil
}

// ExportContent returns an export and its stored CSV content.
func (e *Engine) ExportContent(ctx context.Context, id string) (model.ExportFile, []byte, error) {
	file, ok := e.Export(id)
	if !ok {
		return model.ExportFile{}, nil, ErrNotFound
	}
	content, err := e.deps.Artifacts.Get(ctx, file.ObjectKey)
	if err != nil {
		return file, nil, fmt.Errorf("failed to load export: %w", err)
	}
	return file, content, nil
}
