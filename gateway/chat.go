package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/techpathlabs/milestonedesk/model"
	"github.com/techpathlabs/milestonedesk/parser"
)

// ReplyKind tags the decoded chat envelope
type ReplyKind int

const (
	// NoReply means the response was well-formed but carried nothing usable.
	NoReply ReplyKind = iota
	// ReplyText means an assistant reply was extracted.
	ReplyText
)

// ChatReply is the normalized chat webhook response
type ChatReply struct {
	Kind       ReplyKind
	Text       string
	Milestones []model.Milestone
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type historyEntry struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// agentMilestone is the row shape an agent may return alongside its reply
type agentMilestone struct {
	DeadlineDate string `json:"deadline_date"`
	Name         string `json:"milestone_name"`
	DocumentRef  string `json:"document_ref"`
	Context      string `json:"context"`
	Status       string `json:"status"`
}

// replyFields are checked in order when the envelope has no history.
var replyFields = []string{"output", "reply", "text"}

// SendChat posts a message for a session to the chat webhook.
func (c *Client) SendChat(ctx context.Context, sessionID, message string) (*ChatReply, error) {
	payload, err := json.Marshal(chatRequest{SessionID: sessionID, Message: message})
	if err != nil {
		return nil, unavailable(EndpointChat, "failed to marshal request: %v", err)
	}

	req, err := c.newRequest(ctx, EndpointChat, http.MethodPost, c.config.ChatURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.doJSON(EndpointChat, req)
	if err != nil {
		return nil, err
	}

	reply, err := DecodeChatReply(body)
	if err != nil {
		return nil, unavailable(EndpointChat, "failed to parse response: %v", err)
	}
	return reply, nil
}

// DecodeChatReply normalizes a chat webhook body. The body is either an
// array whose first element is the envelope, or the envelope itself. The
// envelope's history may be a native array or a JSON-encoded string; the
// last assistant entry wins. Without history the singular reply fields are
// consulted.
func DecodeChatReply(body []byte) (*ChatReply, error) {
	envelope, err := firstEnvelope(body)
	if err != nil {
		return nil, err
	}
	reply := &ChatReply{Kind: NoReply}
	if envelope == nil {
		return reply, nil
	}

	if raw, ok := envelope["history"]; ok && !isNull(raw) {
		if text, ok := lastAssistant(raw); ok {
			reply.Kind = ReplyText
			reply.Text = text
		}
	} else {
		for _, field := range replyFields {
			if text := rawString(envelope[field]); strings.TrimSpace(text) != "" {
				reply.Kind = ReplyText
				reply.Text = text
				break
			}
		}
	}

	reply.Milestones = decodeMilestones(envelope["milestones"])
	return reply, nil
}

// firstEnvelope returns the object that carries the reply, or nil when the
// body is a valid JSON value of some other shape.
func firstEnvelope(body []byte) (map[string]json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}

	switch body[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, nil
		}
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(items[0], &envelope); err != nil {
			return nil, nil
		}
		return envelope, nil
	case '{':
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, err
		}
		return envelope, nil
	default:
		var v any
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, err
		}
		return nil, nil
	}
}

func lastAssistant(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return "", false
		}
		raw = json.RawMessage(encoded)
	}

	var history []historyEntry
	if err := json.Unmarshal(raw, &history); err != nil {
		return "", false
	}
	for i := len(history) - 1; i >= 0; i-- {
		if strings.EqualFold(history[i].Role, string(model.RoleAssistant)) {
			return rawString(history[i].Content), true
		}
	}
	return "", false
}

func decodeMilestones(raw json.RawMessage) []model.Milestone {
	if isNull(raw) {
		return nil
	}
	var rows []agentMilestone
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil
	}
	milestones := make([]model.Milestone, 0, len(rows))
	for i, r := range rows {
		cells := []string{r.DeadlineDate, r.Name, r.DocumentRef, r.Context, r.Status}
		for j := range cells {
			cells[j] = strings.TrimSpace(cells[j])
		}
		milestones = append(milestones, parser.FromCells(cells, i+1))
	}
	return milestones
}

// rawString returns a JSON string's value, or the raw JSON text of any
// other non-null value.
func rawString(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
