// Package matcher pairs members whose skills cover each other's needs.
package matcher

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/hrygo/circle/server/internal/errors"
	"github.com/hrygo/circle/store"
)

const (
	DefaultMatchLimit = 20
	MaxMatchLimit     = 100

	candidateLimit = 1000
)

// Store is the interface for store operations needed by the matcher.
type Store interface {
	GetMember(ctx context.Context, find *store.FindMember) (*store.Member, error)
	ListMembers(ctx context.Context, find *store.FindMember) ([]*store.Member, error)
	ListTagAssociations(ctx context.Context, find *store.FindTagAssociation) ([]*store.TagAssociation, error)
}

// Service computes tag overlap between members.
type Service interface {
	// Overlap compares the tag sets of members a and b by tag identity.
	Overlap(ctx context.Context, a, b int32) (*Overlap, error)
	// FindMatches ranks the members sharing a complementary tag with memberID.
	FindMatches(ctx context.Context, memberID int32, limit int) ([]*Match, error)
}

// Overlap is the complementary intersection of two members' tag sets.
type Overlap struct {
	// SharedSkillToNeed holds A's skills that B needs.
	SharedSkillToNeed []*store.Tag
	// SharedNeedToSkill holds A's needs that B has as skills.
	SharedNeedToSkill []*store.Tag
}

// Score is the total intersection size.
func (o *Overlap) Score() int {
	return len(o.SharedSkillToNeed) + len(o.SharedNeedToSkill)
}

// Match is another member ranked by overlap with the queried member.
type Match struct {
	Member  *store.Member
	Overlap *Overlap
	Score   int
}

// tagSet is a member's skill and need tags.
type tagSet struct {
	skills []*store.Tag
	needs  []*store.Tag
}

type service struct {
	store Store
}

// NewService creates a new matcher service.
func NewService(store Store) Service {
	return &service{store: store}
}

// intersect returns the tags of a whose id also appears in b, in a's order.
func intersect(a, b []*store.Tag) []*store.Tag {
	ids := make(map[int32]struct{}, len(b))
	for _, tag := range b {
		ids[tag.ID] = struct{}{}
	}
	shared := make([]*store.Tag, 0)
	for _, tag := range a {
		if _, ok := ids[tag.ID]; ok {
			shared = append(shared, tag)
		}
	}
	return shared
}

func computeOverlap(a, b *tagSet) *Overlap {
	return &Overlap{
		SharedSkillToNeed: intersect(a.skills, b.needs),
		SharedNeedToSkill: intersect(a.needs, b.skills),
	}
}

func (s *service) Overlap(ctx context.Context, a, b int32) (*Overlap, error) {
	var setA, setB *tagSet
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		setA, err = s.loadMemberTags(gctx, a)
		return err
	})
	g.Go(func() error {
		var err error
		setB, err = s.loadMemberTags(gctx, b)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return computeOverlap(setA, setB), nil
}

func (s *service) FindMatches(ctx context.Context, memberID int32, limit int) ([]*Match, error) {
	if limit <= 0 {
		limit = DefaultMatchLimit
	}
	limit = min(limit, MaxMatchLimit)

	own, err := s.loadMemberTags(ctx, memberID)
	if err != nil {
		return nil, err
	}
	tagIDs := make([]int32, 0, len(own.skills)+len(own.needs))
	for _, tag := range append(append([]*store.Tag{}, own.skills...), own.needs...) {
		tagIDs = append(tagIDs, tag.ID)
	}
	if len(tagIDs) == 0 {
		return []*Match{}, nil
	}

	fetchLimit := candidateLimit
	candidates, err := s.store.ListMembers(ctx, &store.FindMember{TagIDs: tagIDs, Limit: &fetchLimit})
	if err != nil {
		return nil, apperrors.FromStore(err, "failed to list match candidates")
	}
	ids := make([]int32, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.ID != memberID {
			ids = append(ids, candidate.ID)
		}
	}
	sets, err := s.loadTagSets(ctx, ids)
	if err != nil {
		return nil, err
	}

	matches := make([]*Match, 0, len(ids))
	for _, candidate := range candidates {
		if candidate.ID == memberID {
			continue
		}
		overlap := computeOverlap(own, sets[candidate.ID])
		if score := overlap.Score(); score > 0 {
			matches = append(matches, &Match{Member: candidate, Overlap: overlap, Score: score})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Member.ID < matches[j].Member.ID
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// loadMemberTags returns the member's tag sets, or NOT_FOUND for an unknown member.
func (s *service) loadMemberTags(ctx context.Context, memberID int32) (*tagSet, error) {
	member, err := s.store.GetMember(ctx, &store.FindMember{ID: &memberID})
	if err != nil {
		return nil, apperrors.FromStore(err, "failed to get member")
	}
	if member == nil {
		return nil, apperrors.NotFound("member not found").WithContext("member_id", memberID)
	}
	sets, err := s.loadTagSets(ctx, []int32{memberID})
	if err != nil {
		return nil, err
	}
	return sets[memberID], nil
}

// loadTagSets returns a tag set for every id, empty when the owner has no tags.
func (s *service) loadTagSets(ctx context.Context, memberIDs []int32) (map[int32]*tagSet, error) {
	sets := make(map[int32]*tagSet, len(memberIDs))
	for _, id := range memberIDs {
		sets[id] = &tagSet{}
	}
	if len(memberIDs) == 0 {
		return sets, nil
	}
	list, err := s.store.ListTagAssociations(ctx, &store.FindTagAssociation{
		OwnerIDs: memberIDs,
		Roles:    store.MemberTagRoles,
	})
	if err != nil {
		return nil, apperrors.FromStore(err, "failed to load member tags")
	}
	for _, association := range list {
		set, ok := sets[association.OwnerID]
		if !ok {
			continue
		}
		switch association.Role {
		case store.TagRoleSkill:
			set.skills = append(set.skills, association.Tag)
		case store.TagRoleNeed:
			set.needs = append(set.needs, association.Tag)
		}
	}
	return sets, nil
}
