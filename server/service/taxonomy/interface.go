package taxonomy

import (
	"context"

	"github.com/hrygo/circle/plugin/ai/tags"
	"github.com/hrygo/circle/store"
)

// Registry owns tag identity and hierarchy.
type Registry interface {
	// FindOrCreate looks the tag up by exact name and creates it when absent.
	// A resolvable parent forces the level to parent level + 1.
	FindOrCreate(ctx context.Context, req *FindOrCreateRequest) (*store.Tag, error)

	// Reclassify overwrites the AI fields of the named tag, creating it if absent.
	Reclassify(ctx context.Context, name string, aiCategory store.TagCategory, aiConfidence float64) (*store.Tag, error)

	// Search matches names case-insensitively, newest first, at most limit tags.
	Search(ctx context.Context, query string, limit int) ([]*store.Tag, error)

	// Get returns the tag or a NOT_FOUND error.
	Get(ctx context.Context, id int32) (*store.Tag, error)

	// Submit classifies a free-text tag on behalf of a caller role and
	// stores the classification.
	Submit(ctx context.Context, name string, role store.TagRole) (*SubmitResult, error)

	// Popular returns the most used tags.
	Popular(ctx context.Context, limit int) ([]*store.Tag, error)

	// Children returns the direct children of a tag ordered by name.
	Children(ctx context.Context, parentID int32) ([]*store.Tag, error)
}

// Ledger owns associations and keeps every tag's usage count equal to its
// number of live associations.
type Ledger interface {
	// Attach is a no-op when the association exists. It reports whether a row was added.
	Attach(ctx context.Context, tagID, ownerID int32, role store.TagRole) (bool, error)

	// Detach is a no-op when the association is absent. It reports whether a row was removed.
	Detach(ctx context.Context, tagID, ownerID int32, role store.TagRole) (bool, error)

	// ReplaceSet makes the owner's tags in role exactly tagIDs, all-or-nothing.
	ReplaceSet(ctx context.Context, ownerID int32, role store.TagRole, tagIDs []int32) (*store.TagSetDiff, error)

	// ReplaceByNames submits every name with the role and replaces the set with the result.
	ReplaceByNames(ctx context.Context, ownerID int32, role store.TagRole, names []string) (*store.TagSetDiff, error)

	// DetachAll removes the owner's associations, optionally only in roles.
	DetachAll(ctx context.Context, ownerID int32, kind store.OwnerKind, roles []store.TagRole) (int, error)

	// ListTags returns the owner's tags in role ordered by name.
	ListTags(ctx context.Context, ownerID int32, role store.TagRole) ([]*store.Tag, error)

	CreateMember(ctx context.Context, req *CreateMemberRequest) (*store.Member, error)
	GetMember(ctx context.Context, id int32) (*store.Member, error)
	DeleteMember(ctx context.Context, id int32) error

	CreateCatalogItem(ctx context.Context, req *CreateCatalogItemRequest) (*store.CatalogItem, error)
	DeleteCatalogItem(ctx context.Context, id int32) error
}

// FindOrCreateRequest describes a tag to find or create.
type FindOrCreateRequest struct {
	Name string
	// Category defaults to unclassified.
	Category store.TagCategory
	// Level defaults to 1 and is ignored when the parent resolves.
	Level int32
	// ParentName is resolved by exact name; an unknown parent is ignored.
	ParentName string
}

// SubmitResult is a stored tag together with how it was classified.
type SubmitResult struct {
	Tag            *store.Tag
	Classification *tags.Classification
	// Confidence is the stored confidence after the role agreement rule.
	Confidence float64
}

// CreateMemberRequest represents the request to create a member.
type CreateMemberRequest struct {
	Name        string
	Bio         string
	Specialties string
	Needs       string
}

// CreateCatalogItemRequest represents the request to create a catalog item.
type CreateCatalogItemRequest struct {
	Title       string
	Description string
	// TagNames are submitted and attached in the catalog role.
	TagNames []string
}
