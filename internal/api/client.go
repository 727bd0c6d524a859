package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"imagetag/internal/models"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	httpTimeoutEnvKey  = "IMAGETAG_HTTP_TIMEOUT"

	// UploadFieldName is the multipart field carrying image bytes.
	UploadFieldName = "image"
)

// Client is a simple HTTP client for the imagetag API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: httpTimeoutFromEnv()},
	}
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	var resp StatusResponse
	return c.do(ctx, http.MethodGet, "/", nil, nil, &resp)
}

// UploadImage sends content as a multipart upload. An empty mediaType lets
// the server sniff the content.
func (c *Client) UploadImage(ctx context.Context, filename, mediaType string, content io.Reader) (models.Image, error) {
	var image models.Image

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, UploadFieldName, filename))
	if mediaType != "" {
		header.Set("Content-Type", mediaType)
	}
	part, err := writer.CreatePart(header)
	if err != nil {
		return image, err
	}
	if _, err := io.Copy(part, content); err != nil {
		return image, err
	}
	if err := writer.Close(); err != nil {
		return image, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/images/create", &body)
	if err != nil {
		return image, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return image, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return image, decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&image); err != nil {
		return image, err
	}
	return image, nil
}

func (c *Client) DeleteImage(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/images/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) ListImages(ctx context.Context, offset, limit int) ([]models.Image, error) {
	query := url.Values{}
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))
	var resp []models.Image
	err := c.do(ctx, http.MethodGet, "/api/v1/images/list", query, nil, &resp)
	return resp, err
}

func (c *Client) GetImageMetadata(ctx context.Context, id string) (models.ImageMetadata, error) {
	var resp models.ImageMetadata
	err := c.do(ctx, http.MethodGet, "/api/v1/images/"+url.PathEscape(id), nil, nil, &resp)
	return resp, err
}

func (c *Client) SearchImages(ctx context.Context, tagIDs []string) ([]models.Image, error) {
	var resp []models.Image
	err := c.do(ctx, http.MethodPost, "/api/v1/images/search", nil, SearchRequest{TagsID: tagIDs}, &resp)
	return resp, err
}

func (c *Client) AddTag(ctx context.Context, imageID, name string) (models.Tag, error) {
	var resp models.Tag
	err := c.do(ctx, http.MethodPost, "/api/v1/images/"+url.PathEscape(imageID)+"/tags", nil, AddTagRequest{Name: name}, &resp)
	return resp, err
}

func (c *Client) ReplaceTag(ctx context.Context, imageID, oldTagID, newName string) (models.Tag, error) {
	var resp models.Tag
	err := c.do(ctx, http.MethodPut, "/api/v1/images/"+url.PathEscape(imageID)+"/tags", nil, ReplaceTagRequest{ID: oldTagID, Name: newName}, &resp)
	return resp, err
}

func (c *Client) DeleteTag(ctx context.Context, imageID, tagID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/images/"+url.PathEscape(imageID)+"/tags/"+url.PathEscape(tagID), nil, nil, nil)
}

func (c *Client) ListTags(ctx context.Context) ([]models.Tag, error) {
	var resp []models.Tag
	err := c.do(ctx, http.MethodGet, "/api/v1/tags/list", nil, nil, &resp)
	return resp, err
}

// Reconcile compares blobs with image rows. With apply, orphan blobs are deleted.
func (c *Client) Reconcile(ctx context.Context, apply bool) (ReconcileResponse, error) {
	query := url.Values{}
	query.Set("apply", strconv.FormatBool(apply))
	var resp ReconcileResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/admin/reconcile", query, nil, &resp)
	return resp, err
}

// FetchImage streams raw image bytes to w and returns the served content type.
func (c *Client) FetchImage(ctx context.Context, id string, w io.Writer) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/view/images/"+url.PathEscape(id), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", decodeError(resp)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", err
	}
	return resp.Header.Get("Content-Type"), nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		return &APIError{
			Status:    resp.StatusCode,
			Code:      errResp.Code,
			ErrorCode: errResp.ErrorCode,
			Message:   errResp.Error,
		}
	}
	return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("api error: %s", resp.Status)}
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
