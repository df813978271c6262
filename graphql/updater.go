package graphql

import (
	"context"
	"sync"
	"time"

	"github.com/graphql-go/graphql"

	"github.com/crmkit/crm-data-apis/log"
)

// SchemaUpdater rebuilds the schema when the catalog version changes.
type SchemaUpdater struct {
	ctx            context.Context
	cancel         context.CancelFunc
	mutex          sync.Mutex
	updateInterval time.Duration
	schema         *graphql.Schema
	schemaGen      *SchemaGenerator
	catalogVersion int64
	logger         log.Logger
}

func (su *SchemaUpdater) Schema() *graphql.Schema {
	su.mutex.Lock()
	defer su.mutex.Unlock()
	return su.schema
}

func NewUpdater(schemaGen *SchemaGenerator, updateInterval time.Duration, logger log.Logger) (*SchemaUpdater, error) {
	version := schemaGen.catalog.Version()
	schema, err := schemaGen.BuildSchema()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SchemaUpdater{
		ctx:            ctx,
		cancel:         cancel,
		updateInterval: updateInterval,
		schema:         &schema,
		schemaGen:      schemaGen,
		catalogVersion: version,
		logger:         logger,
	}, nil
}

// Start polls the catalog until Stop is called.
func (su *SchemaUpdater) Start() {
	for {
		su.update()
		if !su.sleep() {
			return
		}
	}
}

func (su *SchemaUpdater) Stop() {
	su.cancel()
}

func (su *SchemaUpdater) update() {
	version := su.schemaGen.catalog.Version()
	if version == su.catalogVersion {
		return
	}

	schema, err := su.schemaGen.BuildSchema()
	if err != nil {
		su.logger.Error("unable to build graphql schema", "version", version, "error", err)
		return
	}

	su.mutex.Lock()
	su.schema = &schema
	su.mutex.Unlock()
	su.catalogVersion = version
	su.logger.Info("graphql schema updated", "version", version)
}

func (su *SchemaUpdater) sleep() bool {
	timer := time.NewTimer(su.updateInterval)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-su.ctx.Done():
		return false
	}
}
