package runtime

import (
	"context"
	"fmt"

	"github.com/seulgie/asteroid-data-processor/internal/database"
	"github.com/seulgie/asteroid-data-processor/internal/extract"
)

// Loader loads the close-approach dataset into a queryable database.
// The executor calls Load exactly once per execution, during the load
// stage.
type Loader interface {
	Load(ctx context.Context) (*database.NEODatabase, error)
}

// FileLoader loads the dataset from a NEO CSV file and a close-approach
// JSON file on disk.
type FileLoader struct {
	// NEOPath is the path to the NEO CSV file.
	NEOPath string
	// CADPath is the path to the close-approach JSON file.
	CADPath string
}

// Load reads both dataset files and links approaches to their objects.
// The context is checked between the two file reads; a canceled context
// aborts before the second read starts.
func (l *FileLoader) Load(ctx context.Context) (*database.NEODatabase, error) {
	neos, err := extract.LoadNEOs(l.NEOPath)
	if err != nil {
		return nil, fmt.Errorf("loading NEO dataset: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	approaches, err := extract.LoadApproaches(l.CADPath)
	if err != nil {
		return nil, fmt.Errorf("loading close-approach dataset: %w", err)
	}

	return database.New(neos, approaches), nil
}

// DatabaseLoader adapts an already-loaded database to the Loader
// interface. Load returns the wrapped database without touching disk,
// so repeated executions share one dataset.
type DatabaseLoader struct {
	DB *database.NEODatabase
}

// Load returns the wrapped database.
func (l *DatabaseLoader) Load(ctx context.Context) (*database.NEODatabase, error) {
	if l.DB == nil {
		return nil, ErrNilDatabase
	}
	return l.DB, nil
}
