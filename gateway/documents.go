package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/techpathlabs/milestonedesk/model"
)

// Document is a descriptor returned by the document listing
type Document struct {
	DocumentID         string        `json:"document_id"`
	FileName           string        `json:"file_name"`
	Description        string        `json:"description"`
	UploadTime         string        `json:"upload_time"`
	Deadline           string        `json:"deadline,omitempty"`
	Status             string        `json:"status"`
	ContractingParties []model.Party `json:"contracting_parties,omitempty"`
}

type documentList struct {
	Documents *[]Document `json:"documents"`
	Total     int         `json:"total"`
}

var (
	lenderRoles   = []string{"lender", "agent and lender"}
	borrowerRoles = []string{"borrower"}
)

// ListDocuments fetches the document listing and projects every descriptor
// into a milestone keyed by its server document id.
func (c *Client) ListDocuments(ctx context.Context) ([]model.Milestone, error) {
	req, err := c.newRequest(ctx, EndpointDocuments, http.MethodGet, c.config.DocumentsURL, nil)
	if err != nil {
		return nil, err
	}

	body, err := c.doJSON(EndpointDocuments, req)
	if err != nil {
		return nil, err
	}

	var list documentList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, unavailable(EndpointDocuments, "failed to parse response: %v", err)
	}
	if list.Documents == nil {
		return nil, unavailable(EndpointDocuments, "response has no documents field")
	}

	milestones := make([]model.Milestone, 0, len(*list.Documents))
	for _, d := range *list.Documents {
		milestones = append(milestones, ProjectDocument(d))
	}
	return milestones, nil
}

// DeleteDocument asks the document API to remove a document.
func (c *Client) DeleteDocument(ctx context.Context, documentID string) error {
	base := strings.TrimRight(c.config.DocumentsURL, "/")
	if base == "" {
		return unavailable(EndpointDocuments, "endpoint not configured")
	}
	req, err := c.newRequest(ctx, EndpointDocuments, http.MethodDelete, base+"/"+url.PathEscape(documentID), nil)
	if err != nil {
		return err
	}
	_, err = c.do(EndpointDocuments, req)
	return err
}

// ProjectDocument maps a document descriptor onto a milestone. The upload
// date stands in for the deadline when the document has none, and the
// server status is mapped through model.MapRemoteStatus.
func ProjectDocument(d Document) model.Milestone {
	id := d.DocumentID
	if id == "" {
		id = "doc:" + d.FileName + "@" + d.UploadTime
	}

	deadline := strings.TrimSpace(d.Deadline)
	if deadline == "" {
		deadline = uploadDate(d.UploadTime)
	}

	name := d.Description
	if name == "" {
		name = d.FileName
	}

	return model.Milestone{
		ID:                 id,
		DeadlineDate:       deadline,
		Name:               name,
		DocumentRef:        orUnknown(d.FileName),
		Context:            orUnknown(d.Description),
		Status:             model.MapRemoteStatus(d.Status),
		RawStatus:          d.Status,
		FileName:           d.FileName,
		UploadTime:         d.UploadTime,
		Lender:             partyName(d.ContractingParties, lenderRoles),
		Borrower:           partyName(d.ContractingParties, borrowerRoles),
		ContractingParties: d.ContractingParties,
	}
}

// partyName returns the first party whose role matches one of roles,
// case-insensitively, or model.UnknownParty.
func partyName(parties []model.Party, roles []string) string {
	for _, p := range parties {
		role := strings.TrimSpace(p.Role)
		for _, want := range roles {
			if strings.EqualFold(role, want) && strings.TrimSpace(p.Name) != "" {
				return strings.TrimSpace(p.Name)
			}
		}
	}
	return model.UnknownParty
}

func uploadDate(ts string) string {
	if t, ok := model.ParseTimestamp(ts); ok {
		return t.Format(model.DateLayout)
	}
	if len(ts) >= 10 {
		return ts[:10]
	}
	return ts
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return model.UnknownContext
	}
	return s
}
