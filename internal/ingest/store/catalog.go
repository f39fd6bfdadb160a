package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/Origin-Inc/tableflow/internal/ingest/entity"
	"github.com/Origin-Inc/tableflow/internal/pkg/pkgerror"
)

const (
	filePrefix = "file:"
	pathPrefix = "filepath:"
)

// Catalog persists DataFile records in BadgerDB so ingested files stay
// queryable across restarts. Records are keyed by file ID, with a
// secondary storage-path index for stream requests that arrive with a
// path instead of an ID.
type Catalog struct {
	db *badger.DB
}

// NewCatalog wraps an opened badger database.
func NewCatalog(db *badger.DB) *Catalog {
	return &Catalog{db: db}
}

// OpenCatalogDB opens the badger database backing a catalog. An empty
// dir opens an in-memory database (used by tests).
func OpenCatalogDB(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	return badger.Open(opts)
}

// SaveFile stores a record under its file ID and indexes its storage
// path. Records are written once per file and never mutated.
func (c *Catalog) SaveFile(ctx context.Context, file entity.DataFile) error {
	if file.FileID == "" {
		return errors.New("catalog: missing file id")
	}

	data, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode catalog record: %w", err)
	}

	return c.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(filePrefix+file.FileID), data); err != nil {
			return err
		}
		return txn.Set([]byte(pathPrefix+file.StoragePath), []byte(file.FileID))
	})
}

// GetFile looks a record up by file ID.
func (c *Catalog) GetFile(ctx context.Context, fileID string) (entity.DataFile, error) {
	var file entity.DataFile

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(filePrefix + fileID))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &file)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return entity.DataFile{}, pkgerror.ErrNotFound
	}
	return file, err
}

// GetFileByPath looks a record up by storage path via the secondary index.
func (c *Catalog) GetFileByPath(ctx context.Context, storagePath string) (entity.DataFile, error) {
	var fileID string

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(pathPrefix + storagePath))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			fileID = string(v)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return entity.DataFile{}, pkgerror.ErrNotFound
	}
	if err != nil {
		return entity.DataFile{}, err
	}

	return c.GetFile(ctx, fileID)
}

// ListFiles returns all catalog records.
func (c *Catalog) ListFiles(ctx context.Context) ([]entity.DataFile, error) {
	var files []entity.DataFile

	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true

		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(filePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var file entity.DataFile
				if err := json.Unmarshal(v, &file); err != nil {
					return err
				}
				files = append(files, file)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	return files, err
}
