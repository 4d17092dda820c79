package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/circle/store"
)

func TestMemberStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	member := createTestingMember(ctx, t, ts, "alice")
	require.NotEmpty(t, member.UID)
	require.NotZero(t, member.CreatedTs)

	bio := "独立开发者"
	needs := "想学习前端开发和设计思维"
	updated, err := ts.UpdateMember(ctx, &store.UpdateMember{ID: member.ID, Bio: &bio, Needs: &needs})
	require.NoError(t, err)
	require.Equal(t, "alice", updated.Name)
	require.Equal(t, bio, updated.Bio)
	require.Equal(t, needs, updated.Needs)

	found, err := ts.GetMember(ctx, &store.FindMember{UID: &member.UID})
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, member.ID, found.ID)

	missingID := int32(9999)
	_, err = ts.UpdateMember(ctx, &store.UpdateMember{ID: missingID, Bio: &bio})
	require.ErrorIs(t, err, store.ErrOwnerNotFound)
}

func TestListMembersFilters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	alice := createTestingMember(ctx, t, ts, "Alice")
	bob := createTestingMember(ctx, t, ts, "bob")
	bio := "writes Rust"
	_, err := ts.UpdateMember(ctx, &store.UpdateMember{ID: bob.ID, Bio: &bio})
	require.NoError(t, err)
	carol := createTestingMember(ctx, t, ts, "carol")

	frontend := createTestingTag(ctx, t, ts, "前端开发")
	design := createTestingTag(ctx, t, ts, "设计思维")
	_, err = ts.AttachTag(ctx, &store.TagAssociation{TagID: frontend.ID, OwnerID: carol.ID, Role: store.TagRoleNeed})
	require.NoError(t, err)
	_, err = ts.AttachTag(ctx, &store.TagAssociation{TagID: design.ID, OwnerID: alice.ID, Role: store.TagRoleSkill})
	require.NoError(t, err)

	ids := func(members []*store.Member) []int32 {
		list := []int32{}
		for _, m := range members {
			list = append(list, m.ID)
		}
		return list
	}

	query := "ALICE"
	members, err := ts.ListMembers(ctx, &store.FindMember{Query: &query})
	require.NoError(t, err)
	require.Equal(t, []int32{alice.ID}, ids(members))

	query = "rust"
	members, err = ts.ListMembers(ctx, &store.FindMember{Query: &query})
	require.NoError(t, err)
	require.Equal(t, []int32{bob.ID}, ids(members))

	query = "前端"
	members, err = ts.ListMembers(ctx, &store.FindMember{Query: &query})
	require.NoError(t, err)
	require.Equal(t, []int32{carol.ID}, ids(members))

	// Tag filter is OR across ids and roles.
	members, err = ts.ListMembers(ctx, &store.FindMember{TagIDs: []int32{frontend.ID, design.ID}})
	require.NoError(t, err)
	require.ElementsMatch(t, []int32{alice.ID, carol.ID}, ids(members))

	members, err = ts.ListMembers(ctx, &store.FindMember{TagNames: []string{"设计思维"}})
	require.NoError(t, err)
	require.Equal(t, []int32{alice.ID}, ids(members))

	blank := "   "
	members, err = ts.ListMembers(ctx, &store.FindMember{Query: &blank})
	require.NoError(t, err)
	require.Len(t, members, 3)
}
