package store

import (
	"context"

	"github.com/me/satalloc/pkg/model"
)

// Store defines the persistence layer for catalogued instances.
type Store interface {
	CreateInstance(ctx context.Context, rec *model.InstanceRecord) error
	GetInstance(ctx context.Context, id string) (*model.InstanceRecord, error)
	GetInstanceByHash(ctx context.Context, hash string) (*model.InstanceRecord, error)
	ListInstances(ctx context.Context, opts model.ListOptions) ([]*model.InstanceRecord, int, error)
	DeleteInstance(ctx context.Context, id string) error

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
