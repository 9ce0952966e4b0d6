package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/techpathlabs/milestonedesk/config"
	"github.com/techpathlabs/milestonedesk/gateway"
	"github.com/techpathlabs/milestonedesk/model"
	"github.com/techpathlabs/milestonedesk/pkg/logger"
)

// UploadingPlaceholder is the transient assistant message shown while an
// upload is in flight.
const UploadingPlaceholder = "⏳ Uploading…"

// UploadOutcome tells which path an upload settled through
type UploadOutcome string

// Upload outcomes
const (
	UploadSucceeded    UploadOutcome = "success"
	UploadHTTPFailed   UploadOutcome = "http_failure"
	UploadNetworkError UploadOutcome = "network_error"
)

// UploadFile forwards a file to the upload endpoint. The transcript gets a
// user message and a transient placeholder; the placeholder is removed
// before exactly one outcome message is appended.
func (e *Engine) UploadFile(ctx context.Context, name string, content []byte) (UploadOutcome, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyFile
	}
	ctx = e.withSession(ctx)

	op := e.ops.begin(OpUpload)
	defer op.Fail(errAbandoned)
	ctx = logger.WithOperation(ctx, op.ID())

	e.addMessage(model.RoleUser, "📎 Uploading file: "+name)
	placeholder := e.addMessage(model.RoleAssistant, UploadingPlaceholder)

	result, err := e.callUpload(ctx, name, content)
	e.removeMessage(placeholder.ID)

	var statusErr *gateway.StatusError
	switch {
	case err == nil:
		e.addMessage(model.RoleAssistant, fmt.Sprintf("✅ %s uploaded successfully. It will appear in the table once processed.", name))
		e.log.Add("File uploaded: " + name)
		logger.Info(ctx, "file uploaded", "file", name, "status", result.StatusCode)
		if e.cfg.Mode == config.ModeLocal {
			e.appendMilestones(result.Milestones)
			e.log.Add(fmt.Sprintf("File processed: %s: %d rows", name, len(result.Milestones)))
		} else {
			e.refreshLater(ctx)
		}
		op.Settle()
		return UploadSucceeded, nil

	case errors.As(err, &statusErr):
		e.addMessage(model.RoleAssistant, fmt.Sprintf("❌ Upload of %s failed (HTTP %d).", name, statusErr.Code))
		e.log.Add(fmt.Sprintf("Upload failed: %s (HTTP %d)", name, statusErr.Code))
		logger.Warn(ctx, "upload rejected", "file", name, "status", statusErr.Code)
		e.ingestFileFallback(name, content)
		op.Fail(err)
		return UploadHTTPFailed, nil

	default:
		e.addMessage(model.RoleAssistant, fmt.Sprintf("❌ Upload of %s failed: network error.", name))
		e.log.Add(fmt.Sprintf("Upload failed: %s (network error)", name))
		logger.Warn(ctx, "upload failed", "file", name, "error", err)
		e.ingestFileFallback(name, content)
		op.Fail(err)
		return UploadNetworkError, nil
	}
}

func (e *Engine) callUpload(ctx context.Context, name string, content []byte) (result *gateway.UploadResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("upload gateway panic: %v", r)
		}
	}()

	result, err = e.deps.Uploader.UploadFile(ctx, name, bytes.NewReader(content))
	if err == nil && result == nil {
		result = &gateway.UploadResult{}
	}
	return result, err
}

// ingestFileFallback parses a file locally when the upload endpoint could
// not take it. Only local mode does this.
func (e *Engine) ingestFileFallback(name string, content []byte) {
	if e.cfg.Mode != config.ModeLocal {
		return
	}

	parsed := e.parser.ParseFile(name, content)
	if len(parsed) > 0 {
		e.appendMilestones(parsed)
		e.log.Add(fmt.Sprintf("File parsed locally: %s: %d rows", name, len(parsed)))
		return
	}

	e.appendMilestones([]model.Milestone{e.placeholder("Extracted from "+name, name)})
	e.log.Add(fmt.Sprintf("File analyzed: %s: 1 milestone", name))
}
