package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/Origin-Inc/tableflow/internal/ingest/entity"
	"github.com/Origin-Inc/tableflow/internal/ingest/store"
	"github.com/Origin-Inc/tableflow/internal/ingest/usecase"
	"github.com/Origin-Inc/tableflow/internal/pkg/pkgerror"
	"github.com/Origin-Inc/tableflow/internal/pkg/pkgrouter"
)

type HTTPEndpoint struct {
	uc    uc
	blobs store.BlobStore
}

// PutBlob upserts raw file bytes into object storage. All files take
// this path before processing, regardless of size, so the processing
// tier never sees a request body bounded by a size ceiling.
func (h *HTTPEndpoint) PutBlob(w http.ResponseWriter, r *http.Request) {
	storagePath := strings.TrimPrefix(pkgrouter.GetParam(r.Context(), "path"), "/")
	if storagePath == "" {
		writeError(r.Context(), w, pkgerror.NewInvalidInput(errors.New("storage path is required")))
		return
	}

	info, err := h.blobs.Put(r.Context(), storagePath, r.Body, r.Header.Get("Content-Type"))
	if err != nil {
		if errors.Is(err, store.ErrInvalidPath) {
			writeError(r.Context(), w, pkgerror.NewInvalidInput(err))
			return
		}
		writeError(r.Context(), w, pkgerror.NewUpload(err))
		return
	}

	writeJSON(w, http.StatusCreated, info)
}

// GetBlob serves stored object bytes; the whole-file path downloads
// from here for its single-shot parse.
func (h *HTTPEndpoint) GetBlob(w http.ResponseWriter, r *http.Request) {
	storagePath := strings.TrimPrefix(pkgrouter.GetParam(r.Context(), "path"), "/")

	blob, size, err := h.blobs.Open(r.Context(), storagePath)
	if err != nil {
		writeError(r.Context(), w, pkgerror.NewBusiness("object not found", pkgerror.CodeNotFound))
		return
	}
	defer blob.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	if size > 0 {
		w.Header().Set("Content-Length", intToString(size))
	}
	if _, err := io.Copy(w, blob); err != nil {
		slog.WarnContext(r.Context(), "blob download interrupted", "path", storagePath, "error", err)
	}
}

// Files is the mode-switched processing endpoint: mode=metadata runs
// the bounded metadata extraction, mode=stream holds the response open
// and pushes ordered chunk frames.
func (h *HTTPEndpoint) Files(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeUploadRequest(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	switch mode := r.URL.Query().Get("mode"); mode {
	case "", "metadata":
		h.serveMetadata(w, r, req)
	case "stream":
		h.serveStream(w, r, req)
	default:
		writeError(r.Context(), w, pkgerror.NewInvalidInput(errors.New("mode must be metadata or stream")))
	}
}

func (h *HTTPEndpoint) serveMetadata(w http.ResponseWriter, r *http.Request, req usecase.FileRequest) {
	file, err := h.uc.ExtractMetadata(r.Context(), req)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, MetadataResponse{Success: true, DataFile: file})
}

func (h *HTTPEndpoint) serveStream(w http.ResponseWriter, r *http.Request, req usecase.FileRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(r.Context(), w, pkgerror.NewServer(errors.New("streaming unsupported by connection")))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	err := h.uc.StreamChunks(r.Context(), req, func(event entity.StreamEvent) error {
		if err := writeFrame(w, event); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		// The terminal error frame has already been sent when possible;
		// the connection closes with the handler either way.
		slog.WarnContext(r.Context(), "chunk stream ended with error", "path", req.StoragePath, "error", err)
	}
}

// decodeUploadRequest accepts either a JSON blob reference or multipart
// file bytes. Multipart uploads are stored first so both shapes continue
// through the same blob-backed flow.
func (h *HTTPEndpoint) decodeUploadRequest(r *http.Request) (usecase.FileRequest, error) {
	contentType := r.Header.Get("Content-Type")
	if contentType != "" {
		if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && strings.EqualFold(mediaType, "multipart/form-data") {
			return h.storeMultipartFile(r)
		}
	}

	var req UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return usecase.FileRequest{}, pkgerror.NewInvalidFormat()
	}
	if req.StoragePath == "" || req.Filename == "" {
		return usecase.FileRequest{}, pkgerror.NewInvalidInput(errors.New("storagePath and filename are required"))
	}

	return usecase.FileRequest{
		WorkspaceID: req.WorkspaceID,
		PageID:      req.PageID,
		StoragePath: req.StoragePath,
		StorageURL:  req.StorageURL,
		Filename:    req.Filename,
		FileSize:    req.FileSize,
		MimeType:    req.MimeType,
	}, nil
}

func (h *HTTPEndpoint) storeMultipartFile(r *http.Request) (usecase.FileRequest, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return usecase.FileRequest{}, pkgerror.NewInvalidFormat()
	}

	// Parts are sequential: the file part is streamed straight into the
	// blob store when encountered, small form fields are collected as
	// they appear.
	fields := map[string]string{}
	var req usecase.FileRequest
	var stored bool

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return usecase.FileRequest{}, pkgerror.NewInvalidFormat()
		}

		if part.FormName() != "file" {
			value, err := io.ReadAll(io.LimitReader(part, 4096))
			_ = part.Close()
			if err != nil {
				return usecase.FileRequest{}, pkgerror.NewInvalidFormat()
			}
			fields[part.FormName()] = string(value)
			continue
		}

		filename := part.FileName()
		info, err := h.blobs.Put(r.Context(), "uploads/"+filename, part, part.Header.Get("Content-Type"))
		_ = part.Close()
		if err != nil {
			return usecase.FileRequest{}, pkgerror.NewUpload(err)
		}

		req.StoragePath = info.Path
		req.StorageURL = info.URL
		req.Filename = filename
		req.FileSize = info.Size
		req.MimeType = info.MimeType
		stored = true
	}

	if !stored {
		return usecase.FileRequest{}, pkgerror.NewInvalidInput(errors.New("file part is required"))
	}

	req.WorkspaceID = fields["workspaceId"]
	req.PageID = fields["pageId"]
	return req, nil
}

// GetFile serves one catalog record through the standard JSON envelope.
func (h *HTTPEndpoint) GetFile(ctx context.Context, r *http.Request) (any, error) {
	file, err := h.uc.GetFile(ctx, pkgrouter.GetParam(ctx, "id"))
	if err != nil {
		return nil, err
	}
	return FileResponse{DataFile: file}, nil
}

// ListFiles serves all catalog records.
func (h *HTTPEndpoint) ListFiles(ctx context.Context, r *http.Request) (any, error) {
	files, err := h.uc.ListFiles(ctx)
	if err != nil {
		return nil, err
	}
	return FileListResponse{Files: files}, nil
}
