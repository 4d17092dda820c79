package test

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/lithammer/shortuuid/v4"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/circle/store"
)

func createTestingMember(ctx context.Context, t *testing.T, ts *store.Store, name string) *store.Member {
	t.Helper()
	member, err := ts.CreateMember(ctx, &store.Member{UID: shortuuid.New(), Name: name})
	require.NoError(t, err)
	return member
}

func createTestingCatalogItem(ctx context.Context, t *testing.T, ts *store.Store, title, description string, createdTs int64) *store.CatalogItem {
	t.Helper()
	item, err := ts.CreateCatalogItem(ctx, &store.CatalogItem{UID: shortuuid.New(), Title: title, Description: description, CreatedTs: createdTs})
	require.NoError(t, err)
	return item
}

func createTestingTag(ctx context.Context, t *testing.T, ts *store.Store, name string) *store.Tag {
	t.Helper()
	tag, err := ts.CreateTagIfNotExists(ctx, &store.UpsertTag{Name: name, Category: store.TagCategoryUnclassified, Level: 1})
	require.NoError(t, err)
	return tag
}

func usageCount(ctx context.Context, t *testing.T, ts *store.Store, tagID int32) int32 {
	t.Helper()
	tag, err := ts.GetTag(ctx, &store.FindTag{ID: &tagID})
	require.NoError(t, err)
	require.NotNil(t, tag)
	return tag.UsageCount
}

func TestAttachTwiceCountsOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	member := createTestingMember(ctx, t, ts, "alice")
	tag := createTestingTag(ctx, t, ts, "Go")

	attached, err := ts.AttachTag(ctx, &store.TagAssociation{TagID: tag.ID, OwnerID: member.ID, Role: store.TagRoleSkill})
	require.NoError(t, err)
	require.True(t, attached)

	attached, err = ts.AttachTag(ctx, &store.TagAssociation{TagID: tag.ID, OwnerID: member.ID, Role: store.TagRoleSkill})
	require.NoError(t, err)
	require.False(t, attached)
	require.Equal(t, int32(1), usageCount(ctx, t, ts, tag.ID))

	// The same tag in another role is a separate association.
	attached, err = ts.AttachTag(ctx, &store.TagAssociation{TagID: tag.ID, OwnerID: member.ID, Role: store.TagRoleNeed})
	require.NoError(t, err)
	require.True(t, attached)
	require.Equal(t, int32(2), usageCount(ctx, t, ts, tag.ID))
}

func TestAttachUnknownTagOrOwner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	member := createTestingMember(ctx, t, ts, "alice")
	tag := createTestingTag(ctx, t, ts, "Go")

	_, err := ts.AttachTag(ctx, &store.TagAssociation{TagID: 9999, OwnerID: member.ID, Role: store.TagRoleSkill})
	require.ErrorIs(t, err, store.ErrTagNotFound)

	_, err = ts.AttachTag(ctx, &store.TagAssociation{TagID: tag.ID, OwnerID: 9999, Role: store.TagRoleSkill})
	require.ErrorIs(t, err, store.ErrOwnerNotFound)

	// A member id is not a catalog item id.
	_, err = ts.AttachTag(ctx, &store.TagAssociation{TagID: tag.ID, OwnerID: member.ID, Role: store.TagRoleCatalog})
	require.ErrorIs(t, err, store.ErrOwnerNotFound)

	require.Equal(t, int32(0), usageCount(ctx, t, ts, tag.ID))
}

func TestDetachAbsentIsNoop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	tag := createTestingTag(ctx, t, ts, "Go")

	detached, err := ts.DetachTag(ctx, &store.TagAssociation{TagID: tag.ID, OwnerID: 42, Role: store.TagRoleSkill})
	require.NoError(t, err)
	require.False(t, detached)
	require.Equal(t, int32(0), usageCount(ctx, t, ts, tag.ID))
}

func TestDetachWithZeroCountRollsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	member := createTestingMember(ctx, t, ts, "alice")
	tag := createTestingTag(ctx, t, ts, "Go")

	_, err := ts.AttachTag(ctx, &store.TagAssociation{TagID: tag.ID, OwnerID: member.ID, Role: store.TagRoleSkill})
	require.NoError(t, err)

	// Knock the counter out of balance behind the ledger's back.
	_, err = ts.GetDriver().GetDB().ExecContext(ctx, "UPDATE tag SET usage_count = 0")
	require.NoError(t, err)

	_, err = ts.DetachTag(ctx, &store.TagAssociation{TagID: tag.ID, OwnerID: member.ID, Role: store.TagRoleSkill})
	require.ErrorIs(t, err, store.ErrUsageCountUnderflow)

	// The delete was rolled back together with the failed decrement.
	assocs, err := ts.ListTagAssociations(ctx, &store.FindTagAssociation{OwnerID: &member.ID})
	require.NoError(t, err)
	require.Len(t, assocs, 1)
	require.Equal(t, int32(0), usageCount(ctx, t, ts, tag.ID))
}

func TestUsageCountMatchesLiveAssociations(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	members := []*store.Member{}
	for i := 0; i < 4; i++ {
		members = append(members, createTestingMember(ctx, t, ts, fmt.Sprintf("member-%d", i)))
	}
	tags := []*store.Tag{}
	for i := 0; i < 3; i++ {
		tags = append(tags, createTestingTag(ctx, t, ts, fmt.Sprintf("tag-%d", i)))
	}
	roles := []store.TagRole{store.TagRoleSkill, store.TagRoleNeed}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		assoc := &store.TagAssociation{
			TagID:   tags[rng.Intn(len(tags))].ID,
			OwnerID: members[rng.Intn(len(members))].ID,
			Role:    roles[rng.Intn(len(roles))],
		}
		if rng.Intn(2) == 0 {
			_, err := ts.AttachTag(ctx, assoc)
			require.NoError(t, err)
		} else {
			_, err := ts.DetachTag(ctx, assoc)
			require.NoError(t, err)
		}
	}

	for _, tag := range tags {
		tagID := tag.ID
		assocs, err := ts.ListTagAssociations(ctx, &store.FindTagAssociation{TagID: &tagID})
		require.NoError(t, err)
		require.Equal(t, int32(len(assocs)), usageCount(ctx, t, ts, tagID), "tag %s", tag.Name)
	}
}

func TestReplaceTagSet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	member := createTestingMember(ctx, t, ts, "alice")
	a := createTestingTag(ctx, t, ts, "a")
	b := createTestingTag(ctx, t, ts, "b")
	c := createTestingTag(ctx, t, ts, "c")

	diff, err := ts.ReplaceTagSet(ctx, &store.ReplaceTagSet{OwnerID: member.ID, Role: store.TagRoleSkill, TagIDs: []int32{a.ID, b.ID, b.ID}})
	require.NoError(t, err)
	require.ElementsMatch(t, []int32{a.ID, b.ID}, diff.Attached)
	require.Empty(t, diff.Detached)

	diff, err = ts.ReplaceTagSet(ctx, &store.ReplaceTagSet{OwnerID: member.ID, Role: store.TagRoleSkill, TagIDs: []int32{b.ID, c.ID}})
	require.NoError(t, err)
	require.Equal(t, []int32{c.ID}, diff.Attached)
	require.Equal(t, []int32{a.ID}, diff.Detached)

	assocs, err := ts.ListTagAssociations(ctx, &store.FindTagAssociation{OwnerID: &member.ID, Roles: []store.TagRole{store.TagRoleSkill}})
	require.NoError(t, err)
	got := []int32{}
	for _, assoc := range assocs {
		got = append(got, assoc.TagID)
		require.NotNil(t, assoc.Tag)
	}
	require.ElementsMatch(t, []int32{b.ID, c.ID}, got)
	require.Equal(t, int32(0), usageCount(ctx, t, ts, a.ID))
	require.Equal(t, int32(1), usageCount(ctx, t, ts, b.ID))
	require.Equal(t, int32(1), usageCount(ctx, t, ts, c.ID))

	// Replacing with the empty set clears the role.
	diff, err = ts.ReplaceTagSet(ctx, &store.ReplaceTagSet{OwnerID: member.ID, Role: store.TagRoleSkill})
	require.NoError(t, err)
	require.ElementsMatch(t, []int32{b.ID, c.ID}, diff.Detached)
	assocs, err = ts.ListTagAssociations(ctx, &store.FindTagAssociation{OwnerID: &member.ID})
	require.NoError(t, err)
	require.Empty(t, assocs)
}

func TestReplaceTagSetUnknownTagAbortsAll(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	member := createTestingMember(ctx, t, ts, "alice")
	a := createTestingTag(ctx, t, ts, "a")
	b := createTestingTag(ctx, t, ts, "b")

	_, err := ts.ReplaceTagSet(ctx, &store.ReplaceTagSet{OwnerID: member.ID, Role: store.TagRoleNeed, TagIDs: []int32{a.ID}})
	require.NoError(t, err)

	_, err = ts.ReplaceTagSet(ctx, &store.ReplaceTagSet{OwnerID: member.ID, Role: store.TagRoleNeed, TagIDs: []int32{b.ID, 9999}})
	require.ErrorIs(t, err, store.ErrTagNotFound)

	assocs, err := ts.ListTagAssociations(ctx, &store.FindTagAssociation{OwnerID: &member.ID})
	require.NoError(t, err)
	require.Len(t, assocs, 1)
	require.Equal(t, a.ID, assocs[0].TagID)
	require.Equal(t, int32(1), usageCount(ctx, t, ts, a.ID))
	require.Equal(t, int32(0), usageCount(ctx, t, ts, b.ID))
}

func TestDetachAllTagsByRole(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	member := createTestingMember(ctx, t, ts, "alice")
	a := createTestingTag(ctx, t, ts, "a")
	b := createTestingTag(ctx, t, ts, "b")

	_, err := ts.AttachTag(ctx, &store.TagAssociation{TagID: a.ID, OwnerID: member.ID, Role: store.TagRoleSkill})
	require.NoError(t, err)
	_, err = ts.AttachTag(ctx, &store.TagAssociation{TagID: b.ID, OwnerID: member.ID, Role: store.TagRoleNeed})
	require.NoError(t, err)

	count, err := ts.DetachAllTags(ctx, &store.DetachAllTags{OwnerID: member.ID, Kind: store.OwnerKindMember, Roles: []store.TagRole{store.TagRoleNeed}})
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Equal(t, int32(1), usageCount(ctx, t, ts, a.ID))
	require.Equal(t, int32(0), usageCount(ctx, t, ts, b.ID))

	count, err = ts.DetachAllTags(ctx, &store.DetachAllTags{OwnerID: member.ID, Kind: store.OwnerKindMember})
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Equal(t, int32(0), usageCount(ctx, t, ts, a.ID))
}

func TestDeleteCatalogItemKeepsZeroCountTags(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	item := createTestingCatalogItem(ctx, t, ts, "React 入门", "", 0)

	tagIDs := []int32{}
	for _, name := range []string{"React", "前端开发", "技术"} {
		tag := createTestingTag(ctx, t, ts, name)
		tagIDs = append(tagIDs, tag.ID)
		_, err := ts.AttachTag(ctx, &store.TagAssociation{TagID: tag.ID, OwnerID: item.ID, Role: store.TagRoleCatalog})
		require.NoError(t, err)
		require.Equal(t, int32(1), usageCount(ctx, t, ts, tag.ID))
	}

	require.NoError(t, ts.DeleteCatalogItem(ctx, &store.DeleteCatalogItem{ID: item.ID}))

	deleted, err := ts.GetCatalogItem(ctx, &store.FindCatalogItem{ID: &item.ID})
	require.NoError(t, err)
	require.Nil(t, deleted)

	tags, err := ts.ListTags(ctx, &store.FindTag{IDs: tagIDs})
	require.NoError(t, err)
	require.Len(t, tags, 3)
	for _, tag := range tags {
		require.Equal(t, int32(0), tag.UsageCount)
	}

	err = ts.DeleteCatalogItem(ctx, &store.DeleteCatalogItem{ID: item.ID})
	require.ErrorIs(t, err, store.ErrOwnerNotFound)
}

func TestDeleteMemberDetachesBothRoles(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	member := createTestingMember(ctx, t, ts, "alice")
	other := createTestingMember(ctx, t, ts, "bob")
	tag := createTestingTag(ctx, t, ts, "Go")

	for _, assoc := range []*store.TagAssociation{
		{TagID: tag.ID, OwnerID: member.ID, Role: store.TagRoleSkill},
		{TagID: tag.ID, OwnerID: member.ID, Role: store.TagRoleNeed},
		{TagID: tag.ID, OwnerID: other.ID, Role: store.TagRoleSkill},
	} {
		_, err := ts.AttachTag(ctx, assoc)
		require.NoError(t, err)
	}
	require.Equal(t, int32(3), usageCount(ctx, t, ts, tag.ID))

	require.NoError(t, ts.DeleteMember(ctx, &store.DeleteMember{ID: member.ID}))
	require.Equal(t, int32(1), usageCount(ctx, t, ts, tag.ID))
}
