package inbound

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Origin-Inc/tableflow/internal/ingest/entity"
	"github.com/Origin-Inc/tableflow/internal/ingest/store"
	"github.com/Origin-Inc/tableflow/internal/ingest/usecase"
	"github.com/Origin-Inc/tableflow/internal/pkg/pkgrouter"
	"github.com/Origin-Inc/tableflow/internal/pkg/pkguid"
)

type seqStringID struct{ next int }

func (s *seqStringID) Generate() string {
	s.next++
	return fmt.Sprintf("file-%d", s.next)
}

type seqNumberID struct{ next int64 }

func (s *seqNumberID) Generate() int64 {
	s.next++
	return s.next
}

type testClock struct{}

func (testClock) Now() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

func newTestServer(t *testing.T, chunkRows int) *httptest.Server {
	t.Helper()

	blobs, err := store.NewFSBlobStore(t.TempDir(), "/v1/storage")
	if err != nil {
		t.Fatalf("NewFSBlobStore: %v", err)
	}

	db, err := store.OpenCatalogDB("")
	if err != nil {
		t.Fatalf("OpenCatalogDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	uc := usecase.New(usecase.Dependency{
		Blobs:     blobs,
		Catalog:   store.NewCatalog(db),
		FileID:    &seqStringID{},
		SeqID:     &seqNumberID{},
		Clock:     testClock{},
		ChunkRows: chunkRows,
	})

	router := pkgrouter.NewRouter(pkguid.NewUUID())
	RegisterHTTPEndpoint(router, uc, blobs)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func putBlob(t *testing.T, srv *httptest.Server, storagePath, body string) store.BlobInfo {
	t.Helper()

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/v1/storage/"+storagePath, strings.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "text/csv")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("put blob: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("put blob status = %d, body %s", resp.StatusCode, raw)
	}

	var info store.BlobInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decode blob info: %v", err)
	}
	return info
}

func postFiles(t *testing.T, srv *httptest.Server, mode string, body UploadRequest) *http.Response {
	t.Helper()

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	resp, err := http.Post(srv.URL+"/v1/files?mode="+mode, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post files: %v", err)
	}
	return resp
}

func testCSV(rows int) string {
	var sb strings.Builder
	sb.WriteString("id,name\n")
	for i := 1; i <= rows; i++ {
		fmt.Fprintf(&sb, "%d,user%d\n", i, i)
	}
	return sb.String()
}

func TestStorageRoundTrip(t *testing.T) {
	srv := newTestServer(t, 1000)

	const body = "id,name\n1,alice\n"
	info := putBlob(t, srv, "ws1/s1/data.csv", body)

	if info.Path != "ws1/s1/data.csv" || info.Size != int64(len(body)) {
		t.Errorf("blob info = %+v", info)
	}

	resp, err := http.Get(srv.URL + "/v1/storage/ws1/s1/data.csv")
	if err != nil {
		t.Fatalf("get blob: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get blob status = %d", resp.StatusCode)
	}
	got, _ := io.ReadAll(resp.Body)
	if string(got) != body {
		t.Errorf("downloaded = %q, want %q", got, body)
	}
}

func TestStorageGetMissing(t *testing.T) {
	srv := newTestServer(t, 1000)

	resp, err := http.Get(srv.URL + "/v1/storage/nope/missing.csv")
	if err != nil {
		t.Fatalf("get blob: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestFilesMetadataMode(t *testing.T) {
	srv := newTestServer(t, 1000)
	putBlob(t, srv, "ws1/s1/data.csv", testCSV(10))

	resp := postFiles(t, srv, "metadata", UploadRequest{
		WorkspaceID: "ws1",
		StoragePath: "ws1/s1/data.csv",
		Filename:    "data.csv",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body %s", resp.StatusCode, raw)
	}

	var payload MetadataResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !payload.Success {
		t.Error("success = false")
	}
	if payload.DataFile.TableName != "data" {
		t.Errorf("TableName = %q, want data", payload.DataFile.TableName)
	}
	if payload.DataFile.TotalRowEstimate != 10 {
		t.Errorf("TotalRowEstimate = %d, want 10", payload.DataFile.TotalRowEstimate)
	}
	if len(payload.DataFile.Schema) != 2 {
		t.Errorf("schema has %d columns, want 2", len(payload.DataFile.Schema))
	}
}

func TestFilesMetadataModeMissingBlob(t *testing.T) {
	srv := newTestServer(t, 1000)

	resp := postFiles(t, srv, "metadata", UploadRequest{
		StoragePath: "nope/missing.csv",
		Filename:    "missing.csv",
	})
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		t.Fatal("metadata for a missing blob returned 200")
	}
}

func TestFilesInvalidMode(t *testing.T) {
	srv := newTestServer(t, 1000)
	putBlob(t, srv, "data.csv", testCSV(1))

	resp := postFiles(t, srv, "bogus", UploadRequest{StoragePath: "data.csv", Filename: "data.csv"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", resp.StatusCode)
	}
}

// streamFrames splits a raw stream body into (event, data) pairs.
func streamFrames(t *testing.T, body string) [][2]string {
	t.Helper()

	var frames [][2]string
	for _, raw := range strings.Split(strings.TrimSuffix(body, "\n\n"), "\n\n") {
		lines := strings.SplitN(raw, "\n", 2)
		if len(lines) != 2 {
			t.Fatalf("malformed frame: %q", raw)
		}
		event := strings.TrimSpace(strings.TrimPrefix(lines[0], "event:"))
		data := strings.TrimSpace(strings.TrimPrefix(lines[1], "data:"))
		frames = append(frames, [2]string{event, data})
	}
	return frames
}

func TestFilesStreamMode(t *testing.T) {
	srv := newTestServer(t, 10)
	putBlob(t, srv, "ws1/s1/data.csv", testCSV(25))

	resp := postFiles(t, srv, "stream", UploadRequest{
		StoragePath: "ws1/s1/data.csv",
		Filename:    "data.csv",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}

	frames := streamFrames(t, string(raw))
	if len(frames) != 5 {
		t.Fatalf("frame count = %d, want 5 (metadata, 3 chunks, complete)", len(frames))
	}

	if frames[0][0] != "metadata" {
		t.Fatalf("first frame = %s, want metadata", frames[0][0])
	}

	var streamed int64
	for i, frame := range frames[1:4] {
		if frame[0] != "chunk" {
			t.Fatalf("frame %d = %s, want chunk", i+1, frame[0])
		}
		var chunk entity.ChunkPayload
		if err := json.Unmarshal([]byte(frame[1]), &chunk); err != nil {
			t.Fatalf("decode chunk: %v", err)
		}
		if chunk.ChunkIndex != i {
			t.Errorf("chunk index = %d, want %d", chunk.ChunkIndex, i)
		}
		streamed += int64(chunk.RowCount)
		if chunk.TotalRowsStreamed != streamed {
			t.Errorf("TotalRowsStreamed = %d, want %d", chunk.TotalRowsStreamed, streamed)
		}
	}

	if frames[4][0] != "complete" {
		t.Fatalf("last frame = %s, want complete", frames[4][0])
	}
	var final entity.CompletePayload
	if err := json.Unmarshal([]byte(frames[4][1]), &final); err != nil {
		t.Fatalf("decode complete: %v", err)
	}
	if final.FinalRowCount != 25 {
		t.Errorf("FinalRowCount = %d, want 25", final.FinalRowCount)
	}
}

func TestFilesStreamModeMalformedRow(t *testing.T) {
	srv := newTestServer(t, 10)
	putBlob(t, srv, "bad.csv", "a,b\n1,2\nbroken\n")

	resp := postFiles(t, srv, "stream", UploadRequest{StoragePath: "bad.csv", Filename: "bad.csv"})
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}

	frames := streamFrames(t, string(raw))
	last := frames[len(frames)-1]
	if last[0] != "error" {
		t.Fatalf("terminal frame = %s, want error", last[0])
	}
	for _, frame := range frames {
		if frame[0] == "complete" {
			t.Fatal("complete frame emitted on a failed stream")
		}
	}
}

func TestGetFileEndpoint(t *testing.T) {
	srv := newTestServer(t, 1000)
	putBlob(t, srv, "data.csv", testCSV(3))

	resp := postFiles(t, srv, "metadata", UploadRequest{StoragePath: "data.csv", Filename: "data.csv"})
	var created MetadataResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	resp.Body.Close()

	getResp, err := http.Get(srv.URL + "/v1/files/" + created.DataFile.FileID)
	if err != nil {
		t.Fatalf("get file: %v", err)
	}
	defer getResp.Body.Close()

	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", getResp.StatusCode)
	}
	raw, _ := io.ReadAll(getResp.Body)
	if !strings.Contains(string(raw), created.DataFile.FileID) {
		t.Errorf("response %s does not reference file %s", raw, created.DataFile.FileID)
	}

	missing, err := http.Get(srv.URL + "/v1/files/never-created")
	if err != nil {
		t.Fatalf("get missing file: %v", err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("missing file status = %d, want 404", missing.StatusCode)
	}
}

func TestListFilesEndpoint(t *testing.T) {
	srv := newTestServer(t, 1000)
	putBlob(t, srv, "one.csv", testCSV(1))
	putBlob(t, srv, "two.csv", testCSV(2))

	for _, p := range []string{"one.csv", "two.csv"} {
		resp := postFiles(t, srv, "metadata", UploadRequest{StoragePath: p, Filename: p})
		resp.Body.Close()
	}

	resp, err := http.Get(srv.URL + "/v1/files")
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	raw, _ := io.ReadAll(resp.Body)
	for _, p := range []string{"one.csv", "two.csv"} {
		if !strings.Contains(string(raw), p) {
			t.Errorf("listing missing %s: %s", p, raw)
		}
	}
}

func TestFilesMultipartUpload(t *testing.T) {
	srv := newTestServer(t, 1000)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("workspaceId", "ws9"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	fw, err := mw.CreateFormFile("file", "upload.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte(testCSV(4))); err != nil {
		t.Fatalf("write file part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	resp, err := http.Post(srv.URL+"/v1/files?mode=metadata", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("post multipart: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body %s", resp.StatusCode, raw)
	}

	var payload MetadataResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.DataFile.WorkspaceID != "ws9" {
		t.Errorf("WorkspaceID = %q, want ws9", payload.DataFile.WorkspaceID)
	}
	if payload.DataFile.StoragePath != "uploads/upload.csv" {
		t.Errorf("StoragePath = %q, want uploads/upload.csv", payload.DataFile.StoragePath)
	}
	if payload.DataFile.TotalRowEstimate != 4 {
		t.Errorf("TotalRowEstimate = %d, want 4", payload.DataFile.TotalRowEstimate)
	}
}
