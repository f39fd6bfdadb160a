package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/Origin-Inc/tableflow/internal/ingest/entity"
	"github.com/Origin-Inc/tableflow/internal/pkg/pkgconfig"
	"github.com/Origin-Inc/tableflow/internal/pkg/pkgerror"
	"github.com/Origin-Inc/tableflow/internal/pkg/pkgroutine"
	"github.com/Origin-Inc/tableflow/internal/pkg/pkguid"
)

// defaultMaxSessions bounds concurrently running ingestion sessions
// when no Runner is supplied.
const defaultMaxSessions = 8

// Runner schedules session work on a bounded pool.
type Runner interface {
	Go(ctx context.Context, f func(ctx context.Context) error)
}

type Dependency struct {
	Client  *Client
	Engine  Engine
	Runner  Runner          // optional; defaults to a bounded goroutine manager
	ID      pkguid.StringID // optional; defaults to UUIDs
	RootCtx context.Context

	// WholeFileMaxBytes is the strategy threshold; zero uses the default.
	WholeFileMaxBytes int64
}

// Pipeline runs ingestion sessions against one engine instance. The
// engine is an explicit dependency rather than a shared global, so
// tests and concurrent sessions get isolated instances.
type Pipeline struct {
	client    *Client
	engine    Engine
	runner    Runner
	id        pkguid.StringID
	rootCtx   context.Context
	threshold int64
}

func New(dep Dependency) (*Pipeline, error) {
	if dep.Client == nil || dep.Engine == nil {
		return nil, errors.New("loader: missing dependency")
	}

	runner := dep.Runner
	if runner == nil {
		runner = pkgroutine.NewManager(defaultMaxSessions)
	}

	id := dep.ID
	if id == nil {
		id = pkguid.NewUUID()
	}

	rootCtx := dep.RootCtx
	if rootCtx == nil {
		rootCtx = context.Background()
	}

	threshold := dep.WholeFileMaxBytes
	if threshold < 1 {
		threshold = DefaultWholeFileMaxBytes
	}

	return &Pipeline{
		client:    dep.Client,
		engine:    dep.Engine,
		runner:    runner,
		id:        id,
		rootCtx:   rootCtx,
		threshold: threshold,
	}, nil
}

// NewFromConfig wires a pipeline from application configuration: the
// strategy threshold comes from ingest.wholeFileMaxBytes, UUIDs name
// the sessions, and a bounded goroutine manager runs them.
func NewFromConfig(cfg pkgconfig.Config, client *Client, engine Engine) (*Pipeline, error) {
	return New(Dependency{
		Client:            client,
		Engine:            engine,
		WholeFileMaxBytes: cfg.GetInt("ingest.wholeFileMaxBytes"),
	})
}

// Input is one file to ingest.
type Input struct {
	WorkspaceID string
	PageID      string
	Filename    string
	SizeBytes   int64
	MimeType    string
	Data        io.Reader
}

// Start routes the file, creates its session, and runs the pipeline in
// the background. Observe the returned session for progress and the
// terminal result; its Cancel aborts the in-flight work.
func (p *Pipeline) Start(input Input) (*Session, error) {
	if input.Data == nil || input.Filename == "" {
		return nil, pkgerror.NewInvalidInput(errors.New("filename and data are required"))
	}
	if input.SizeBytes < 0 {
		return nil, pkgerror.NewInvalidInput(errors.New("size must be non-negative"))
	}

	ctx, cancel := context.WithCancel(p.rootCtx)
	session := newSession(p.id.Generate(), input.Filename, input.SizeBytes, Route(input.SizeBytes, p.threshold), cancel)

	// The scheduling context is detached from the session context so a
	// Cancel racing Start still gets its terminal update from run.
	p.runner.Go(context.WithoutCancel(ctx), func(context.Context) error {
		p.run(ctx, session, input)
		return nil
	})

	return session, nil
}

func (p *Pipeline) run(ctx context.Context, session *Session, input Input) {
	materializer := NewMaterializer(p.engine)

	result, err := p.execute(ctx, session, materializer, input)
	if err == nil {
		session.complete(result)
		return
	}

	// A failed or canceled session never leaves a half-loaded table
	// behind; cleanup runs on an uncanceled context.
	if discardErr := materializer.Discard(context.WithoutCancel(ctx)); discardErr != nil {
		slog.WarnContext(ctx, "failed to drop partial table", "session_id", session.ID, "error", discardErr)
	}

	if session.Canceled() || errors.Is(err, context.Canceled) {
		session.failCanceled()
		return
	}

	slog.ErrorContext(ctx, "ingestion session failed", "session_id", session.ID, "filename", input.Filename, "error", err)
	session.fail(err)
}

func (p *Pipeline) execute(ctx context.Context, session *Session, materializer *Materializer, input Input) (Result, error) {
	session.setState(StateUploading)

	storagePath := path.Join(input.WorkspaceID, session.ID, input.Filename)
	blob, err := p.client.UploadBlob(ctx, storagePath, input.Data, input.SizeBytes, input.MimeType,
		func(pct int) { session.setProgress(uploadProgress(pct)) },
	)
	if err != nil {
		return Result{}, pkgerror.NewUpload(err)
	}

	ref := FileReference{
		WorkspaceID: input.WorkspaceID,
		PageID:      input.PageID,
		StoragePath: blob.Path,
		StorageURL:  blob.URL,
		Filename:    input.Filename,
		FileSize:    blob.Size,
		MimeType:    blob.MimeType,
	}

	session.setState(StateProcessing)
	session.setProgress(uploadPhaseCeiling)

	if session.Strategy == entity.StrategyWholeFile {
		return p.runWholeFile(ctx, materializer, ref)
	}
	return p.runProgressive(ctx, session, materializer, ref)
}

// runProgressive drives the chunk stream: open the long-lived response,
// decode frames incrementally, and materialize each chunk before the
// next frame is processed. Frame handling is strictly sequential.
func (p *Pipeline) runProgressive(ctx context.Context, session *Session, materializer *Materializer, ref FileReference) (Result, error) {
	body, err := p.client.OpenStream(ctx, ref)
	if err != nil {
		return Result{}, pkgerror.NewStream(err)
	}
	defer body.Close()

	var result *Result
	var rowEstimate int64

	decoder := NewDecoder(func(frame Frame) error {
		// Cancellation must stop engine mutations even when frames are
		// already buffered locally.
		if err := ctx.Err(); err != nil {
			return err
		}

		switch entity.EventType(frame.Event) {
		case entity.EventMetadata:
			var file entity.DataFile
			if err := json.Unmarshal(frame.Data, &file); err != nil {
				return pkgerror.NewStream(fmt.Errorf("decode metadata frame: %w", err))
			}
			rowEstimate = file.TotalRowEstimate
			materializer.OnMetadata(file)
			return nil

		case entity.EventChunk:
			var chunk entity.ChunkPayload
			if err := json.Unmarshal(frame.Data, &chunk); err != nil {
				return pkgerror.NewStream(fmt.Errorf("decode chunk frame: %w", err))
			}
			if err := materializer.OnChunk(ctx, chunk); err != nil {
				return err
			}
			session.setProgress(processingProgress(chunk.TotalRowsStreamed, rowEstimate))
			return nil

		case entity.EventComplete:
			var final entity.CompletePayload
			if err := json.Unmarshal(frame.Data, &final); err != nil {
				return pkgerror.NewStream(fmt.Errorf("decode complete frame: %w", err))
			}
			res, err := materializer.OnComplete(ctx, final)
			if err != nil {
				return err
			}
			result = &res
			return nil

		case entity.EventError:
			var failure entity.ErrorPayload
			if err := json.Unmarshal(frame.Data, &failure); err != nil {
				return pkgerror.NewStream(fmt.Errorf("decode error frame: %w", err))
			}
			return pkgerror.NewStream(errors.New(failure.Message))

		default:
			return pkgerror.NewStream(fmt.Errorf("unknown stream event %q", frame.Event))
		}
	})

	// Pull-based read loop: the next read is only issued once every
	// frame in the previous one has been fully processed.
	buf := make([]byte, 32*1024)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if err := decoder.Feed(buf[:n]); err != nil {
				return Result{}, err
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return Result{}, pkgerror.NewStream(readErr)
		}
	}

	if err := decoder.Close(); err != nil {
		return Result{}, pkgerror.NewStream(err)
	}
	if result == nil {
		return Result{}, pkgerror.NewStream(errors.New("stream ended without a terminal event"))
	}

	return *result, nil
}
