package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/techpathlabs/milestonedesk/config"
	"github.com/techpathlabs/milestonedesk/gateway"
	"github.com/techpathlabs/milestonedesk/model"
	"github.com/techpathlabs/milestonedesk/parser"
	"github.com/techpathlabs/milestonedesk/pkg/logger"
)

// Assistant messages used when the webhook gives no usable reply
const (
	UnavailableReply  = "The assistant is currently unavailable. Please try again in a moment."
	GenericErrorReply = "Something went wrong while contacting the assistant."
	NoReplyText       = "The assistant did not return a reply."
)

const (
	placeholderLead   = 30 * 24 * time.Hour
	promptNameLimit   = 60
	chatPromptRef     = "Chat prompt"
	placeholderSource = "Imported"
)

// SendMessage appends text to the transcript, forwards it to the chat
// webhook and appends the outcome as an assistant message. It only fails
// for blank input; gateway faults become messages and log entries.
func (e *Engine) SendMessage(ctx context.Context, text string) (model.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.ChatMessage{}, ErrEmptyMessage
	}
	ctx = e.withSession(ctx)

	op := e.ops.begin(OpSend)
	defer op.Fail(errAbandoned)
	ctx = logger.WithOperation(ctx, op.ID())

	e.addMessage(model.RoleUser, text)

	reply, err := e.callChat(ctx, text)
	switch {
	case err == nil && reply.Kind == gateway.ReplyText:
		msg := e.addMessage(model.RoleAssistant, reply.Text)
		e.log.Add("Chat reply received")
		e.applyChatMilestones(reply.Milestones)
		if mentionsChange(reply.Text) {
			e.refreshLater(ctx)
		}
		op.Settle()
		return msg, nil

	case err == nil:
		msg := e.addMessage(model.RoleAssistant, NoReplyText)
		e.log.Add("Chat returned no reply")
		e.applyChatMilestones(reply.Milestones)
		op.Settle()
		return msg, nil

	case errors.Is(err, gateway.ErrUnavailable):
		logger.Warn(ctx, "chat gateway unavailable", "error", err)
		msg := e.addMessage(model.RoleAssistant, UnavailableReply)
		e.log.Add("Chat unavailable")
		if e.cfg.Mode == config.ModeLocal {
			e.ingestPrompt(text)
		}
		op.Fail(err)
		return msg, nil

	default:
		logger.Error(ctx, "chat failed", "error", err)
		msg := e.addMessage(model.RoleAssistant, GenericErrorReply)
		e.log.Add("Chat failed")
		op.Fail(err)
		return msg, nil
	}
}

func (e *Engine) callChat(ctx context.Context, text string) (reply *gateway.ChatReply, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("chat gateway panic: %v", r)
		}
	}()

	reply, err = e.deps.Chat.SendChat(ctx, e.cfg.SessionID, text)
	if err == nil && reply == nil {
		reply = &gateway.ChatReply{Kind: gateway.NoReply}
	}
	return reply, err
}

// applyChatMilestones appends milestones carried by a chat reply in local
// mode. Remote mode picks them up from the next document poll instead.
func (e *Engine) applyChatMilestones(items []model.Milestone) {
	if e.cfg.Mode != config.ModeLocal || len(items) == 0 {
		return
	}
	e.appendMilestones(items)
	e.log.Add(fmt.Sprintf("Chat added %d milestones", len(items)))
}

// ingestPrompt parses a prompt the webhook could not take. Tables and CSV
// are imported row by row; anything else becomes one placeholder.
func (e *Engine) ingestPrompt(text string) {
	format := parser.Detect(text)
	parsed := e.parser.Parse(format, text)
	if len(parsed) > 0 {
		e.appendMilestones(parsed)
		switch format {
		case parser.FormatHTML:
			e.log.Add(fmt.Sprintf("HTML table parsed: %d rows extracted", len(parsed)))
		default:
			e.log.Add(fmt.Sprintf("CSV text parsed: %d rows extracted", len(parsed)))
		}
		return
	}

	e.appendMilestones([]model.Milestone{e.placeholder(truncate(text, promptNameLimit), chatPromptRef)})
	e.log.Add("Prompt analyzed: 1 milestone added")
}

// placeholder synthesizes a milestone due a month from now.
func (e *Engine) placeholder(name, ref string) model.Milestone {
	now := e.deps.Now()
	deadline := now.Add(placeholderLead).Format(model.DateLayout)
	return model.Milestone{
		ID:           e.deps.NewID(),
		DeadlineDate: deadline,
		Name:         name,
		DocumentRef:  ref,
		Context:      placeholderSource,
		Status:       model.DeriveStatusAt(deadline, "", now),
	}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}
