package store

import (
	"context"

	"github.com/hrygo/circle/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) CreateTagIfNotExists(ctx context.Context, upsert *UpsertTag) (*Tag, error) {
	return s.driver.CreateTagIfNotExists(ctx, upsert)
}

func (s *Store) UpsertTagClassification(ctx context.Context, upsert *UpsertTag) (*Tag, error) {
	return s.driver.UpsertTagClassification(ctx, upsert)
}

func (s *Store) ListTags(ctx context.Context, find *FindTag) ([]*Tag, error) {
	return s.driver.ListTags(ctx, find)
}

// GetTag returns the first matching tag, or nil when none matches.
func (s *Store) GetTag(ctx context.Context, find *FindTag) (*Tag, error) {
	limit := 1
	find.Limit = &limit
	list, err := s.ListTags(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) AttachTag(ctx context.Context, create *TagAssociation) (bool, error) {
	return s.driver.AttachTag(ctx, create)
}

func (s *Store) DetachTag(ctx context.Context, delete *TagAssociation) (bool, error) {
	return s.driver.DetachTag(ctx, delete)
}

func (s *Store) ReplaceTagSet(ctx context.Context, replace *ReplaceTagSet) (*TagSetDiff, error) {
	return s.driver.ReplaceTagSet(ctx, replace)
}

func (s *Store) DetachAllTags(ctx context.Context, delete *DetachAllTags) (int, error) {
	return s.driver.DetachAllTags(ctx, delete)
}

func (s *Store) ListTagAssociations(ctx context.Context, find *FindTagAssociation) ([]*TagAssociation, error) {
	return s.driver.ListTagAssociations(ctx, find)
}

func (s *Store) CreateMember(ctx context.Context, create *Member) (*Member, error) {
	return s.driver.CreateMember(ctx, create)
}

func (s *Store) UpdateMember(ctx context.Context, update *UpdateMember) (*Member, error) {
	return s.driver.UpdateMember(ctx, update)
}

func (s *Store) ListMembers(ctx context.Context, find *FindMember) ([]*Member, error) {
	return s.driver.ListMembers(ctx, find)
}

// GetMember returns the first matching member, or nil when none matches.
func (s *Store) GetMember(ctx context.Context, find *FindMember) (*Member, error) {
	limit := 1
	find.Limit = &limit
	list, err := s.ListMembers(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) DeleteMember(ctx context.Context, delete *DeleteMember) error {
	return s.driver.DeleteMember(ctx, delete)
}

func (s *Store) CreateCatalogItem(ctx context.Context, create *CatalogItem) (*CatalogItem, error) {
	return s.driver.CreateCatalogItem(ctx, create)
}

func (s *Store) ListCatalogItems(ctx context.Context, find *FindCatalogItem) ([]*CatalogItem, error) {
	return s.driver.ListCatalogItems(ctx, find)
}

// GetCatalogItem returns the first matching item, or nil when none matches.
func (s *Store) GetCatalogItem(ctx context.Context, find *FindCatalogItem) (*CatalogItem, error) {
	limit := 1
	find.Limit = &limit
	list, err := s.ListCatalogItems(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) DeleteCatalogItem(ctx context.Context, delete *DeleteCatalogItem) error {
	return s.driver.DeleteCatalogItem(ctx, delete)
}
