package inbound

import (
	"context"
	"net/http"

	"github.com/Origin-Inc/tableflow/internal/ingest/entity"
	"github.com/Origin-Inc/tableflow/internal/ingest/store"
	"github.com/Origin-Inc/tableflow/internal/ingest/usecase"
	"github.com/Origin-Inc/tableflow/internal/pkg/pkgrouter"
)

type uc interface {
	ExtractMetadata(ctx context.Context, req usecase.FileRequest) (entity.DataFile, error)
	StreamChunks(ctx context.Context, req usecase.FileRequest, emit func(entity.StreamEvent) error) error
	GetFile(ctx context.Context, fileID string) (entity.DataFile, error)
	ListFiles(ctx context.Context) ([]entity.DataFile, error)
}

func RegisterHTTPEndpoint(r *pkgrouter.Router, uc uc, blobs store.BlobStore) {
	end := &HTTPEndpoint{uc: uc, blobs: blobs}

	// Blob storage and the mode-switched upload endpoint bypass the JSON
	// envelope: one moves raw bytes, the other holds a long-lived
	// streaming response body.
	r.Handle(http.MethodPut, "/v1/storage/*path", http.HandlerFunc(end.PutBlob))
	r.Handle(http.MethodGet, "/v1/storage/*path", http.HandlerFunc(end.GetBlob))
	r.Handle(http.MethodPost, "/v1/files", http.HandlerFunc(end.Files))

	r.GET("/v1/files", end.ListFiles)
	r.GET("/v1/files/:id", end.GetFile)
}
