package ingest

import (
	"context"

	"github.com/Origin-Inc/tableflow/internal/ingest/inbound"
	"github.com/Origin-Inc/tableflow/internal/ingest/store"
	"github.com/Origin-Inc/tableflow/internal/ingest/usecase"
	"github.com/Origin-Inc/tableflow/internal/pkg/pkgconfig"
	"github.com/Origin-Inc/tableflow/internal/pkg/pkgrouter"
	"github.com/Origin-Inc/tableflow/internal/pkg/pkguid"
)

type Dependency struct {
	Config pkgconfig.Config
	Router *pkgrouter.Router
	FileID pkguid.StringID
	SeqID  pkguid.NumberID
}

// New wires the ingestion module: filesystem blob store, badger-backed
// catalog, the metadata/stream usecase, and the HTTP endpoints. The
// returned closer releases the catalog database.
func New(dep Dependency) (func(context.Context) error, error) {
	blobs, err := store.NewFSBlobStore(dep.Config.GetString("ingest.storageDir"), "/v1/storage")
	if err != nil {
		return nil, err
	}

	db, err := store.OpenCatalogDB(dep.Config.GetString("ingest.catalogDir"))
	if err != nil {
		return nil, err
	}

	if dep.FileID == nil {
		dep.FileID = pkguid.NewUUID()
	}
	if dep.SeqID == nil {
		snow, err := pkguid.NewSnowflake()
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		dep.SeqID = snow
	}

	uc := usecase.New(usecase.Dependency{
		Blobs:      blobs,
		Catalog:    store.NewCatalog(db),
		FileID:     dep.FileID,
		SeqID:      dep.SeqID,
		ChunkRows:  int(dep.Config.GetInt("ingest.chunkRows")),
		SampleRows: int(dep.Config.GetInt("ingest.sampleRows")),
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc, blobs)

	return func(context.Context) error {
		return db.Close()
	}, nil
}
