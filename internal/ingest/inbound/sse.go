package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Origin-Inc/tableflow/internal/ingest/entity"
	"github.com/Origin-Inc/tableflow/internal/pkg/pkgerror"
)

// writeFrame encodes one stream event in the wire frame shape
// "event: <type>\ndata: <json>\n\n". The blank line terminates the
// frame; the client decoder splits on it.
func writeFrame(w io.Writer, event entity.StreamEvent) error {
	var payload any
	switch event.Type {
	case entity.EventMetadata:
		payload = event.Metadata
	case entity.EventChunk:
		payload = event.Chunk
	case entity.EventComplete:
		payload = event.Complete
	case entity.EventError:
		payload = event.Error
	default:
		return fmt.Errorf("unknown event type: %q", event.Type)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", event.Type, err)
	}

	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
	return err
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response body", "error", err)
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var perr *pkgerror.Error
	if !errors.As(err, &perr) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
		return
	}

	slog.WarnContext(ctx, "request failed", "code", perr.Code().String(), "error", err)
	writeJSON(w, perr.StatusCode(), map[string]string{"message": perr.Msg()})
}

func intToString(v int64) string {
	return strconv.FormatInt(v, 10)
}
