package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/techpathlabs/milestonedesk/model"
)

// Defaults for trigger fields the server leaves out
const (
	DefaultTriggerLabel     = "Untitled trigger"
	DefaultTriggerStatus    = "unknown"
	DefaultExecutionStatus  = "never"
	defaultTriggerIDPattern = "trigger-%d"
)

// ListTriggers fetches the remote workflow triggers, newest first.
func (c *Client) ListTriggers(ctx context.Context) ([]model.Trigger, error) {
	req, err := c.newRequest(ctx, EndpointTriggers, http.MethodGet, c.config.TriggersURL, nil)
	if err != nil {
		return nil, err
	}

	body, err := c.doJSON(EndpointTriggers, req)
	if err != nil {
		return nil, err
	}

	triggers, err := DecodeTriggers(body)
	if err != nil {
		return nil, unavailable(EndpointTriggers, "failed to parse response: %v", err)
	}
	return triggers, nil
}

// DecodeTriggers accepts a bare array, an object wrapping a triggers array
// or object, or a single trigger object. Missing fields get defaults and
// the result is sorted by creation time, newest first.
func DecodeTriggers(body []byte) ([]model.Trigger, error) {
	items, err := triggerItems(body)
	if err != nil {
		return nil, err
	}

	triggers := make([]model.Trigger, 0, len(items))
	for i, item := range items {
		var fields map[string]any
		if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
			continue
		}
		triggers = append(triggers, toTrigger(fields, i))
	}

	sort.SliceStable(triggers, func(i, j int) bool {
		return triggers[i].CreatedAt.After(triggers[j].CreatedAt)
	})
	return triggers, nil
}

func triggerItems(body []byte) ([]json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("empty body")
	}

	switch body[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, err
		}
		return items, nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(body, &obj); err != nil {
			return nil, err
		}
		wrapped, ok := obj["triggers"]
		if !ok {
			return []json.RawMessage{body}, nil
		}
		wrapped = bytes.TrimSpace(wrapped)
		switch {
		case len(wrapped) > 0 && wrapped[0] == '[':
			var items []json.RawMessage
			if err := json.Unmarshal(wrapped, &items); err != nil {
				return nil, err
			}
			return items, nil
		case len(wrapped) > 0 && wrapped[0] == '{':
			return []json.RawMessage{wrapped}, nil
		default:
			return nil, nil
		}
	default:
		return nil, fmt.Errorf("unrecognized triggers payload")
	}
}

func toTrigger(fields map[string]any, index int) model.Trigger {
	t := model.Trigger{
		ID:                  stringField(fields, "id"),
		Label:               stringField(fields, "label"),
		Status:              stringField(fields, "status"),
		LastExecutionStatus: stringField(fields, "last_execution_status"),
	}
	if ts, ok := model.ParseTimestamp(stringField(fields, "created_at")); ok {
		t.CreatedAt = ts
	}

	if t.ID == "" {
		t.ID = fmt.Sprintf(defaultTriggerIDPattern, index+1)
	}
	if t.Label == "" {
		t.Label = DefaultTriggerLabel
	}
	if t.Status == "" {
		t.Status = DefaultTriggerStatus
	}
	if t.LastExecutionStatus == "" {
		t.LastExecutionStatus = DefaultExecutionStatus
	}
	return t
}

func stringField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
