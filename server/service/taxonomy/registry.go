// Package taxonomy implements the tag registry and the association ledger.
//
// The registry owns tag identity and hierarchy. The ledger owns tag
// associations and keeps usage counts consistent with them. Both translate
// store errors into coded errors at this boundary.
package taxonomy

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hrygo/circle/plugin/ai/tags"
	apperrors "github.com/hrygo/circle/server/internal/errors"
	"github.com/hrygo/circle/store"
)

const (
	// MaxSearchLimit is the hard cap on tag search results.
	MaxSearchLimit = 50
	// DefaultPopularLimit is the number of popular tags returned by default.
	DefaultPopularLimit = 20
)

// RegistryStore is the interface for store operations needed by the registry.
type RegistryStore interface {
	CreateTagIfNotExists(ctx context.Context, upsert *store.UpsertTag) (*store.Tag, error)
	UpsertTagClassification(ctx context.Context, upsert *store.UpsertTag) (*store.Tag, error)
	ListTags(ctx context.Context, find *store.FindTag) ([]*store.Tag, error)
	GetTag(ctx context.Context, find *store.FindTag) (*store.Tag, error)
}

type registry struct {
	store       RegistryStore
	classifier  tags.Classifier
	searchLimit int
}

// NewRegistry creates a new tag registry. searchLimit is the default search
// size and is capped at MaxSearchLimit.
func NewRegistry(store RegistryStore, classifier tags.Classifier, searchLimit int) Registry {
	if searchLimit <= 0 || searchLimit > MaxSearchLimit {
		searchLimit = MaxSearchLimit
	}
	return &registry{
		store:       store,
		classifier:  classifier,
		searchLimit: searchLimit,
	}
}

// normalizeName trims surrounding whitespace. Case is preserved.
func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.InvalidArgument("tag name must not be empty")
	}
	return name, nil
}

func (r *registry) FindOrCreate(ctx context.Context, req *FindOrCreateRequest) (*store.Tag, error) {
	name, err := normalizeName(req.Name)
	if err != nil {
		return nil, err
	}
	category := req.Category
	if category == "" {
		category = store.TagCategoryUnclassified
	}
	if !category.IsValid() {
		return nil, apperrors.InvalidArgumentf("unknown tag category %q", req.Category)
	}
	if req.Level < 0 {
		return nil, apperrors.InvalidArgumentf("tag level must be positive, got %d", req.Level)
	}

	upsert := &store.UpsertTag{
		Name:     name,
		Category: category,
		Level:    max(req.Level, 1),
	}
	if parentName := strings.TrimSpace(req.ParentName); parentName != "" {
		parent, err := r.store.GetTag(ctx, &store.FindTag{Name: &parentName})
		if err != nil {
			return nil, apperrors.FromStore(err, "failed to resolve parent tag")
		}
		if parent != nil {
			upsert.ParentID = &parent.ID
			upsert.Level = parent.Level + 1
		} else {
			slog.Debug("parent tag not found, creating root tag",
				"name", name,
				"parent", parentName)
		}
	}

	tag, err := r.store.CreateTagIfNotExists(ctx, upsert)
	if err != nil {
		return nil, apperrors.FromStore(err, "failed to find or create tag")
	}
	return tag, nil
}

func (r *registry) Reclassify(ctx context.Context, name string, aiCategory store.TagCategory, aiConfidence float64) (*store.Tag, error) {
	return r.reclassify(ctx, name, store.TagCategoryUnclassified, aiCategory, aiConfidence)
}

// reclassify stores the AI fields. createCategory is only used when the tag
// does not exist yet.
func (r *registry) reclassify(ctx context.Context, name string, createCategory, aiCategory store.TagCategory, aiConfidence float64) (*store.Tag, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	if !aiCategory.IsValid() {
		return nil, apperrors.InvalidArgumentf("unknown tag category %q", aiCategory)
	}
	if aiConfidence < 0 || aiConfidence > 1 {
		return nil, apperrors.InvalidArgumentf("confidence must be within [0, 1], got %v", aiConfidence)
	}

	tag, err := r.store.UpsertTagClassification(ctx, &store.UpsertTag{
		Name:         name,
		Category:     createCategory,
		Level:        1,
		AICategory:   string(aiCategory),
		AIConfidence: float32(aiConfidence),
	})
	if err != nil {
		return nil, apperrors.FromStore(err, "failed to reclassify tag")
	}
	return tag, nil
}

func (r *registry) Search(ctx context.Context, query string, limit int) ([]*store.Tag, error) {
	if limit <= 0 {
		limit = r.searchLimit
	}
	limit = min(limit, MaxSearchLimit)

	find := &store.FindTag{Limit: &limit}
	if query = strings.TrimSpace(query); query != "" {
		find.NameContains = &query
	}
	list, err := r.store.ListTags(ctx, find)
	if err != nil {
		return nil, apperrors.FromStore(err, "failed to search tags")
	}
	return list, nil
}

func (r *registry) Get(ctx context.Context, id int32) (*store.Tag, error) {
	tag, err := r.store.GetTag(ctx, &store.FindTag{ID: &id})
	if err != nil {
		return nil, apperrors.FromStore(err, "failed to get tag")
	}
	if tag == nil {
		return nil, apperrors.NotFound("tag not found").WithContext("tag_id", id)
	}
	return tag, nil
}

func (r *registry) Submit(ctx context.Context, name string, role store.TagRole) (*SubmitResult, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	if role != "" && !role.IsValid() {
		return nil, apperrors.InvalidArgumentf("unknown tag role %q", role)
	}

	classification, err := r.classifier.Classify(ctx, name)
	if err != nil {
		return nil, apperrors.Internal("failed to classify tag", err)
	}
	confidence := classification.ConfidenceForRole(role)

	// A tag first seen under a member role takes that role as its category.
	createCategory := store.TagCategoryUnclassified
	if role == store.TagRoleSkill || role == store.TagRoleNeed {
		createCategory = store.TagCategory(role)
	}
	tag, err := r.reclassify(ctx, name, createCategory, classification.Category, confidence)
	if err != nil {
		return nil, err
	}
	slog.Debug("tag submitted",
		"name", name,
		"role", role,
		"category", classification.Category,
		"confidence", confidence,
		"classifier", classification.Source)
	return &SubmitResult{
		Tag:            tag,
		Classification: classification,
		Confidence:     confidence,
	}, nil
}

func (r *registry) Popular(ctx context.Context, limit int) ([]*store.Tag, error) {
	if limit <= 0 {
		limit = DefaultPopularLimit
	}
	limit = min(limit, MaxSearchLimit)
	list, err := r.store.ListTags(ctx, &store.FindTag{OrderByUsage: true, Limit: &limit})
	if err != nil {
		return nil, apperrors.FromStore(err, "failed to list popular tags")
	}
	return list, nil
}

func (r *registry) Children(ctx context.Context, parentID int32) ([]*store.Tag, error) {
	if _, err := r.Get(ctx, parentID); err != nil {
		return nil, err
	}
	list, err := r.store.ListTags(ctx, &store.FindTag{ParentID: &parentID, OrderByName: true})
	if err != nil {
		return nil, apperrors.FromStore(err, "failed to list child tags")
	}
	return list, nil
}
