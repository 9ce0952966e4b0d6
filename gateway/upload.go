package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/techpathlabs/milestonedesk/model"
)

// UploadResult describes an accepted upload
type UploadResult struct {
	StatusCode int
	Milestones []model.Milestone
}

// UploadFile submits content as a multipart form under the configured
// field name. Success is signaled by the status code alone; when the body
// happens to be a chat-style envelope its milestones are returned.
func (c *Client) UploadFile(ctx context.Context, fileName string, content io.Reader) (*UploadResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(c.config.UploadField, fileName)
	if err != nil {
		return nil, unavailable(EndpointUpload, "failed to create form: %v", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, &TransportError{Endpoint: EndpointUpload, Err: fmt.Errorf("failed to read file: %w", err)}
	}
	if err := writer.Close(); err != nil {
		return nil, unavailable(EndpointUpload, "failed to close form: %v", err)
	}

	req, err := c.newRequest(ctx, EndpointUpload, http.MethodPost, c.config.UploadURL, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: EndpointUpload, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Endpoint: EndpointUpload, Code: resp.StatusCode}
	}

	result := &UploadResult{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(resp.Body)
	if err == nil && len(bytes.TrimSpace(body)) > 0 {
		if reply, err := DecodeChatReply(body); err == nil {
			result.Milestones = reply.Milestones
		}
	}
	return result, nil
}
