package inbound

import (
	"github.com/Origin-Inc/tableflow/internal/ingest/entity"
)

// UploadRequest references an already-uploaded blob. It arrives as the
// JSON body of POST /v1/files for both metadata and stream modes.
type UploadRequest struct {
	WorkspaceID string `json:"workspaceId"`
	PageID      string `json:"pageId"`
	StoragePath string `json:"storagePath"`
	StorageURL  string `json:"storageUrl"`
	Filename    string `json:"filename"`
	FileSize    int64  `json:"fileSize"`
	MimeType    string `json:"mimeType"`
}

// MetadataResponse is the mode=metadata response body.
type MetadataResponse struct {
	Success  bool            `json:"success"`
	DataFile entity.DataFile `json:"dataFile"`
}

// FileResponse wraps one catalog record for the enveloped endpoints.
type FileResponse struct {
	entity.DataFile
}

func (FileResponse) Message() string {
	return "data file found"
}

// FileListResponse wraps the catalog listing.
type FileListResponse struct {
	Files []entity.DataFile `json:"files"`
}

func (FileListResponse) Message() string {
	return "data files listed"
}

func (r FileListResponse) Meta() map[string]any {
	return map[string]any{"total": len(r.Files)}
}
