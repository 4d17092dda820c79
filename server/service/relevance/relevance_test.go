package relevance

import (
	"context"
	"testing"

	"github.com/lithammer/shortuuid/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/circle/store"
	teststore "github.com/hrygo/circle/store/test"
)

type fixture struct {
	ctx   context.Context
	t     *testing.T
	store *store.Store
}

func newFixture(t *testing.T) *fixture {
	ctx := context.Background()
	return &fixture{ctx: ctx, t: t, store: teststore.NewTestingStore(ctx, t)}
}

func (f *fixture) tag(name string) *store.Tag {
	tag, err := f.store.CreateTagIfNotExists(f.ctx, &store.UpsertTag{Name: name, Category: store.TagCategoryUnclassified, Level: 1})
	require.NoError(f.t, err)
	return tag
}

func (f *fixture) member(name, bio string, updatedTs int64) *store.Member {
	member, err := f.store.CreateMember(f.ctx, &store.Member{UID: shortuuid.New(), Name: name, Bio: bio, CreatedTs: updatedTs, UpdatedTs: updatedTs})
	require.NoError(f.t, err)
	return member
}

func (f *fixture) item(title, description string, createdTs int64) *store.CatalogItem {
	item, err := f.store.CreateCatalogItem(f.ctx, &store.CatalogItem{UID: shortuuid.New(), Title: title, Description: description, CreatedTs: createdTs})
	require.NoError(f.t, err)
	return item
}

func (f *fixture) attach(tag *store.Tag, ownerID int32, role store.TagRole) {
	_, err := f.store.AttachTag(f.ctx, &store.TagAssociation{TagID: tag.ID, OwnerID: ownerID, Role: role})
	require.NoError(f.t, err)
}

func catalogIDs(results []*CatalogResult) []int32 {
	ids := make([]int32, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.Item.ID)
	}
	return ids
}

func memberIDs(results []*MemberResult) []int32 {
	ids := make([]int32, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.Member.ID)
	}
	return ids
}

func TestFrontendScenario(t *testing.T) {
	f := newFixture(t)
	frontend := f.tag("前端开发")
	f.tag("设计思维")
	m := f.member("M", "", 100)
	p := f.item("P", "", 100)
	f.attach(frontend, m.ID, store.TagRoleNeed)
	f.attach(frontend, p.ID, store.TagRoleCatalog)

	s := NewService(f.store, 0)

	catalog, err := s.SearchCatalog(f.ctx, &CatalogQuery{Text: "前端"})
	require.NoError(t, err)
	require.Len(t, catalog, 1)
	assert.Equal(t, p.ID, catalog[0].Item.ID)
	assert.Equal(t, TierTag, catalog[0].Tier)
	assert.Equal(t, 1, catalog[0].MatchedTagCount)
	require.Len(t, catalog[0].Tags, 1)
	assert.Equal(t, "前端开发", catalog[0].Tags[0].Name)

	members, err := s.SearchMembers(f.ctx, &MemberQuery{TagIDs: []int32{frontend.ID}})
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, m.ID, members[0].Member.ID)
	assert.Len(t, members[0].Needs, 1)
	assert.Empty(t, members[0].Skills)

	members, err = s.SearchMembers(f.ctx, &MemberQuery{TagNames: []string{"前端开发"}})
	require.NoError(t, err)
	assert.Equal(t, []int32{m.ID}, memberIDs(members))
}

func TestSearchCatalogTiers(t *testing.T) {
	f := newFixture(t)
	design := f.tag("设计思维")

	byDescription := f.item("Workshop", "A course on Design thinking", 300)
	byTitle := f.item("Design sprint", "five days", 100)
	byTag := f.item("Untitled", "", 50)
	f.attach(design, byTag.ID, store.TagRoleCatalog)
	olderByTitle := f.item("design review", "", 10)
	f.item("Unrelated", "nothing here", 500)

	s := NewService(f.store, 0)
	results, err := s.SearchCatalog(f.ctx, &CatalogQuery{Text: " DESIGN "})
	require.NoError(t, err)
	assert.Equal(t, []int32{byTitle.ID, olderByTitle.ID, byDescription.ID}, catalogIDs(results))
	assert.Equal(t, TierTitle, results[0].Tier)
	assert.Equal(t, TierDescription, results[2].Tier)

	results, err = s.SearchCatalog(f.ctx, &CatalogQuery{Text: "设计"})
	require.NoError(t, err)
	assert.Equal(t, []int32{byTag.ID}, catalogIDs(results))

	// Tag tier beats title tier even for an older item.
	f.attach(design, olderByTitle.ID, store.TagRoleCatalog)
	f.attach(f.tag("design ops"), olderByTitle.ID, store.TagRoleCatalog)
	results, err = s.SearchCatalog(f.ctx, &CatalogQuery{Text: "design"})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, olderByTitle.ID, results[0].Item.ID)
	assert.Equal(t, TierTag, results[0].Tier)
	assert.Equal(t, 1, results[0].MatchedTagCount)
}

func TestSearchCatalogMatchedTagCountOrdering(t *testing.T) {
	f := newFixture(t)
	react := f.tag("React")
	reactNative := f.tag("React Native")

	one := f.item("one", "", 500)
	two := f.item("two", "", 100)
	f.attach(react, one.ID, store.TagRoleCatalog)
	f.attach(react, two.ID, store.TagRoleCatalog)
	f.attach(reactNative, two.ID, store.TagRoleCatalog)

	results, err := NewService(f.store, 0).SearchCatalog(f.ctx, &CatalogQuery{Text: "react"})
	require.NoError(t, err)
	assert.Equal(t, []int32{two.ID, one.ID}, catalogIDs(results))
	assert.Equal(t, 2, results[0].MatchedTagCount)
}

func TestSearchCatalogNoQuery(t *testing.T) {
	f := newFixture(t)
	tag := f.tag("Go")
	first := f.item("first", "", 100)
	second := f.item("second", "", 200)
	same := f.item("same time", "", 200)
	f.attach(tag, first.ID, store.TagRoleCatalog)
	f.attach(tag, same.ID, store.TagRoleCatalog)

	s := NewService(f.store, 0)
	results, err := s.SearchCatalog(f.ctx, &CatalogQuery{Text: "   "})
	require.NoError(t, err)
	assert.Equal(t, []int32{same.ID, second.ID, first.ID}, catalogIDs(results))
	for _, r := range results {
		assert.Equal(t, TierNone, r.Tier)
	}

	results, err = s.SearchCatalog(f.ctx, &CatalogQuery{TagID: &tag.ID})
	require.NoError(t, err)
	assert.Equal(t, []int32{same.ID, first.ID}, catalogIDs(results))

	results, err = s.SearchCatalog(f.ctx, &CatalogQuery{Text: "second", TagID: &tag.ID})
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = NewService(f.store, 2).SearchCatalog(f.ctx, &CatalogQuery{})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchMembersTiers(t *testing.T) {
	f := newFixture(t)
	python := f.tag("Python")
	pythonData := f.tag("Python数据分析")

	byBio := f.member("alice", "I write python every day", 400)
	byName := f.member("Pythonista", "", 100)
	byTag := f.member("bob", "", 50)
	byTwoTags := f.member("carol", "", 10)
	f.member("dave", "gardening", 900)
	f.attach(python, byTag.ID, store.TagRoleSkill)
	f.attach(python, byTwoTags.ID, store.TagRoleNeed)
	f.attach(pythonData, byTwoTags.ID, store.TagRoleSkill)

	s := NewService(f.store, 0)
	results, err := s.SearchMembers(f.ctx, &MemberQuery{Text: "python"})
	require.NoError(t, err)
	assert.Equal(t, []int32{byTwoTags.ID, byTag.ID, byName.ID, byBio.ID}, memberIDs(results))
	assert.Equal(t, 2, results[0].MatchedTagCount)
	assert.Equal(t, TierName, results[2].Tier)
	assert.Equal(t, TierBio, results[3].Tier)

	// OR semantics across roles and ids.
	results, err = s.SearchMembers(f.ctx, &MemberQuery{TagIDs: []int32{python.ID, pythonData.ID}})
	require.NoError(t, err)
	assert.Equal(t, []int32{byTag.ID, byTwoTags.ID}, memberIDs(results))

	results, err = s.SearchMembers(f.ctx, &MemberQuery{})
	require.NoError(t, err)
	assert.Len(t, results, 5)
	assert.Equal(t, "dave", results[0].Member.Name)
}
