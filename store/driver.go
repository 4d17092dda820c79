package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Tag model related methods.
	// CreateTagIfNotExists inserts the tag unless the name is taken and returns the stored row.
	CreateTagIfNotExists(ctx context.Context, upsert *UpsertTag) (*Tag, error)
	// UpsertTagClassification overwrites the AI fields of the named tag, creating it if absent.
	UpsertTagClassification(ctx context.Context, upsert *UpsertTag) (*Tag, error)
	ListTags(ctx context.Context, find *FindTag) ([]*Tag, error)

	// TagAssociation model related methods. Every mutation keeps tag.usage_count
	// equal to the number of associations in the same transaction.
	AttachTag(ctx context.Context, create *TagAssociation) (bool, error)
	DetachTag(ctx context.Context, delete *TagAssociation) (bool, error)
	ReplaceTagSet(ctx context.Context, replace *ReplaceTagSet) (*TagSetDiff, error)
	DetachAllTags(ctx context.Context, delete *DetachAllTags) (int, error)
	ListTagAssociations(ctx context.Context, find *FindTagAssociation) ([]*TagAssociation, error)

	// Member model related methods.
	CreateMember(ctx context.Context, create *Member) (*Member, error)
	UpdateMember(ctx context.Context, update *UpdateMember) (*Member, error)
	ListMembers(ctx context.Context, find *FindMember) ([]*Member, error)
	// DeleteMember detaches all member tags and deletes the row in one transaction.
	DeleteMember(ctx context.Context, delete *DeleteMember) error

	// CatalogItem model related methods.
	CreateCatalogItem(ctx context.Context, create *CatalogItem) (*CatalogItem, error)
	ListCatalogItems(ctx context.Context, find *FindCatalogItem) ([]*CatalogItem, error)
	// DeleteCatalogItem detaches all catalog tags and deletes the row in one transaction.
	DeleteCatalogItem(ctx context.Context, delete *DeleteCatalogItem) error
}
