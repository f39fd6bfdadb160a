package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Origin-Inc/tableflow/internal/ingest/entity"
)

// FileReference identifies an uploaded blob to the processing tier. It
// mirrors the JSON body of POST /v1/files.
type FileReference struct {
	WorkspaceID string `json:"workspaceId"`
	PageID      string `json:"pageId"`
	StoragePath string `json:"storagePath"`
	StorageURL  string `json:"storageUrl"`
	Filename    string `json:"filename"`
	FileSize    int64  `json:"fileSize"`
	MimeType    string `json:"mimeType"`
}

// BlobRef is the storage location of an uploaded object.
type BlobRef struct {
	Path     string `json:"path"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}

// Client is the HTTP transport to the ingestion server: blob storage
// PUT/GET, the metadata request, and the long-lived stream request.
type Client struct {
	base string
	hc   *http.Client
}

// NewClient targets baseURL. A nil httpClient falls back to the default
// client; the stream request relies on per-request contexts, not client
// timeouts, so the default is safe for long-lived responses.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{base: strings.TrimSuffix(baseURL, "/"), hc: httpClient}
}

// UploadBlob PUTs the object to storage, reporting transfer progress in
// monotonic 0-100 steps. The server upserts by path.
func (c *Client) UploadBlob(ctx context.Context, storagePath string, r io.Reader, size int64, contentType string, onProgress func(pct int)) (BlobRef, error) {
	body := newProgressReader(r, size, onProgress)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.storageURL(storagePath), body)
	if err != nil {
		return BlobRef{}, err
	}
	req.ContentLength = size
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return BlobRef{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return BlobRef{}, fmt.Errorf("storage put %s: %s", storagePath, readErrorMessage(resp))
	}

	var ref BlobRef
	if err := json.NewDecoder(resp.Body).Decode(&ref); err != nil {
		return BlobRef{}, fmt.Errorf("decode storage response: %w", err)
	}

	body.finish()
	return ref, nil
}

// DownloadBlob fetches the raw object bytes; the whole-file path parses
// from this stream.
func (c *Client) DownloadBlob(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.storageURL(storagePath), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, fmt.Errorf("storage get %s: %s", storagePath, readErrorMessage(resp))
	}

	return resp.Body, nil
}

// RequestMetadata runs the bounded metadata extraction for an uploaded
// blob and returns its catalog record.
func (c *Client) RequestMetadata(ctx context.Context, ref FileReference) (entity.DataFile, error) {
	resp, err := c.postFiles(ctx, ref, "metadata")
	if err != nil {
		return entity.DataFile{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return entity.DataFile{}, fmt.Errorf("metadata request: %s", readErrorMessage(resp))
	}

	var payload struct {
		Success  bool            `json:"success"`
		DataFile entity.DataFile `json:"dataFile"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return entity.DataFile{}, fmt.Errorf("decode metadata response: %w", err)
	}
	if !payload.Success {
		return entity.DataFile{}, fmt.Errorf("metadata request unsuccessful")
	}

	return payload.DataFile, nil
}

// OpenStream starts the long-lived chunk stream. The caller owns the
// returned body; canceling ctx aborts the in-flight read and releases
// the connection.
func (c *Client) OpenStream(ctx context.Context, ref FileReference) (io.ReadCloser, error) {
	resp, err := c.postFiles(ctx, ref, "stream")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, fmt.Errorf("stream request: %s", readErrorMessage(resp))
	}

	return resp.Body, nil
}

func (c *Client) postFiles(ctx context.Context, ref FileReference, mode string) (*http.Response, error) {
	body, err := json.Marshal(ref)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/v1/files?mode="+mode, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.hc.Do(req)
}

// storageURL escapes each path segment while keeping the slashes that
// structure the storage path.
func (c *Client) storageURL(storagePath string) string {
	segments := strings.Split(strings.Trim(storagePath, "/"), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return c.base + "/v1/storage/" + strings.Join(segments, "/")
}

func readErrorMessage(resp *http.Response) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload); err == nil && payload.Message != "" {
		return fmt.Sprintf("%s (%s)", payload.Message, resp.Status)
	}
	return resp.Status
}
