package entity

import (
	"time"

	"github.com/Origin-Inc/tableflow/internal/tabular"
)

// DataFile is the catalog record created once per ingested file by
// metadata extraction. It is immutable after creation.
type DataFile struct {
	ID          int64            `json:"id"`
	FileID      string           `json:"fileId"`
	WorkspaceID string           `json:"workspaceId"`
	PageID      string           `json:"pageId"`
	Filename    string           `json:"filename"`
	TableName   string           `json:"tableName"`
	Schema      []tabular.Column `json:"schema"`
	SizeBytes   int64            `json:"sizeBytes"`
	MimeType    string           `json:"mimeType"`

	// TotalRowEstimate is heuristic unless the metadata sample exhausted
	// the file; the complete event carries the actual count.
	TotalRowEstimate int64 `json:"rowCount"`
	EstimatedChunks  int64 `json:"estimatedChunks"`

	StoragePath string    `json:"storagePath"`
	StorageURL  string    `json:"storageUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}
