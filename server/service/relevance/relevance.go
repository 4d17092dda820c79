// Package relevance ranks catalog items and members against a free-text
// query. Candidates are pre-filtered by the store and ranked in memory by
// match tier.
package relevance

import (
	"context"
	"sort"
	"strings"
	"time"

	apperrors "github.com/hrygo/circle/server/internal/errors"
	"github.com/hrygo/circle/internal/observability"
	"github.com/hrygo/circle/store"
)

const (
	// DefaultMaxResults caps the results of one search.
	DefaultMaxResults = 100
	// CandidateLimit caps the rows fetched from the store before ranking.
	CandidateLimit = 1000
)

// Tier is the strongest field a result matched on. Lower tiers rank first.
type Tier string

const (
	TierTag         Tier = "tag"
	TierTitle       Tier = "title"
	TierDescription Tier = "description"
	TierName        Tier = "name"
	TierBio         Tier = "bio"
	// TierNone marks results of a search without query text.
	TierNone Tier = ""
)

var tierRank = map[Tier]int{
	TierTag:         0,
	TierTitle:       1,
	TierName:        1,
	TierDescription: 2,
	TierBio:         2,
	TierNone:        3,
}

// Store is the interface for store operations needed by relevance search.
type Store interface {
	ListCatalogItems(ctx context.Context, find *store.FindCatalogItem) ([]*store.CatalogItem, error)
	ListMembers(ctx context.Context, find *store.FindMember) ([]*store.Member, error)
	ListTagAssociations(ctx context.Context, find *store.FindTagAssociation) ([]*store.TagAssociation, error)
}

// Service searches catalog items and members.
type Service interface {
	SearchCatalog(ctx context.Context, query *CatalogQuery) ([]*CatalogResult, error)
	SearchMembers(ctx context.Context, query *MemberQuery) ([]*MemberResult, error)
}

// CatalogQuery filters and ranks catalog items.
type CatalogQuery struct {
	Text string
	// TagID keeps only items bearing this tag.
	TagID *int32
}

// MemberQuery filters and ranks members.
type MemberQuery struct {
	Text string
	// TagIDs keeps members bearing any of the tags, in either role.
	TagIDs []int32
	// TagNames keeps members bearing any tag with one of these names.
	TagNames []string
}

// CatalogResult is a ranked catalog item with its tags.
type CatalogResult struct {
	Item            *store.CatalogItem
	Tags            []*store.Tag
	Tier            Tier
	MatchedTagCount int
}

// MemberResult is a ranked member with both tag sets.
type MemberResult struct {
	Member          *store.Member
	Skills          []*store.Tag
	Needs           []*store.Tag
	Tier            Tier
	MatchedTagCount int
}

type service struct {
	store      Store
	maxResults int
}

// NewService creates a new relevance search service.
func NewService(store Store, maxResults int) Service {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &service{
		store:      store,
		maxResults: maxResults,
	}
}

// matcher does the case-insensitive substring test used for every field.
type matcher string

func newMatcher(text string) matcher {
	return matcher(strings.ToLower(strings.TrimSpace(text)))
}

func (m matcher) empty() bool { return m == "" }

func (m matcher) match(s string) bool {
	return strings.Contains(strings.ToLower(s), string(m))
}

func (m matcher) countTags(list []*store.Tag) int {
	n := 0
	for _, tag := range list {
		if m.match(tag.Name) {
			n++
		}
	}
	return n
}

func (s *service) SearchCatalog(ctx context.Context, query *CatalogQuery) ([]*CatalogResult, error) {
	start := time.Now()
	m := newMatcher(query.Text)

	limit := CandidateLimit
	find := &store.FindCatalogItem{TagID: query.TagID, Limit: &limit}
	if !m.empty() {
		text := strings.TrimSpace(query.Text)
		find.Query = &text
	}
	items, err := s.store.ListCatalogItems(ctx, find)
	if err != nil {
		return nil, apperrors.FromStore(err, "failed to list catalog items")
	}

	ids := make([]int32, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	tagsByOwner, err := s.loadTags(ctx, ids, store.TagRoleCatalog)
	if err != nil {
		return nil, err
	}

	results := make([]*CatalogResult, 0, len(items))
	for _, item := range items {
		tags := tagsByOwner[item.ID][store.TagRoleCatalog]
		result := &CatalogResult{Item: item, Tags: tags, Tier: TierNone}
		if !m.empty() {
			result.MatchedTagCount = m.countTags(tags)
			switch {
			case result.MatchedTagCount > 0:
				result.Tier = TierTag
			case m.match(item.Title):
				result.Tier = TierTitle
			case m.match(item.Description):
				result.Tier = TierDescription
			default:
				continue
			}
		}
		results = append(results, result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if tierRank[a.Tier] != tierRank[b.Tier] {
			return tierRank[a.Tier] < tierRank[b.Tier]
		}
		if a.MatchedTagCount != b.MatchedTagCount {
			return a.MatchedTagCount > b.MatchedTagCount
		}
		if a.Item.CreatedTs != b.Item.CreatedTs {
			return a.Item.CreatedTs > b.Item.CreatedTs
		}
		return a.Item.ID > b.Item.ID
	})
	if len(results) > s.maxResults {
		results = results[:s.maxResults]
	}

	observability.RecordSearch("catalog", time.Since(start), len(results))
	return results, nil
}

func (s *service) SearchMembers(ctx context.Context, query *MemberQuery) ([]*MemberResult, error) {
	start := time.Now()
	m := newMatcher(query.Text)

	limit := CandidateLimit
	find := &store.FindMember{TagIDs: query.TagIDs, TagNames: query.TagNames, Limit: &limit}
	if !m.empty() {
		text := strings.TrimSpace(query.Text)
		find.Query = &text
	}
	members, err := s.store.ListMembers(ctx, find)
	if err != nil {
		return nil, apperrors.FromStore(err, "failed to list members")
	}

	ids := make([]int32, 0, len(members))
	for _, member := range members {
		ids = append(ids, member.ID)
	}
	tagsByOwner, err := s.loadTags(ctx, ids, store.MemberTagRoles...)
	if err != nil {
		return nil, err
	}

	results := make([]*MemberResult, 0, len(members))
	for _, member := range members {
		result := &MemberResult{
			Member: member,
			Skills: tagsByOwner[member.ID][store.TagRoleSkill],
			Needs:  tagsByOwner[member.ID][store.TagRoleNeed],
			Tier:   TierNone,
		}
		if !m.empty() {
			result.MatchedTagCount = m.countTags(result.Skills) + m.countTags(result.Needs)
			switch {
			case result.MatchedTagCount > 0:
				result.Tier = TierTag
			case m.match(member.Name):
				result.Tier = TierName
			case m.match(member.Bio):
				result.Tier = TierBio
			default:
				continue
			}
		}
		results = append(results, result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if tierRank[a.Tier] != tierRank[b.Tier] {
			return tierRank[a.Tier] < tierRank[b.Tier]
		}
		if a.MatchedTagCount != b.MatchedTagCount {
			return a.MatchedTagCount > b.MatchedTagCount
		}
		if a.Member.UpdatedTs != b.Member.UpdatedTs {
			return a.Member.UpdatedTs > b.Member.UpdatedTs
		}
		return a.Member.ID > b.Member.ID
	})
	if len(results) > s.maxResults {
		results = results[:s.maxResults]
	}

	observability.RecordSearch("members", time.Since(start), len(results))
	return results, nil
}

// loadTags returns the tags of every owner grouped by owner and role.
func (s *service) loadTags(ctx context.Context, ownerIDs []int32, roles ...store.TagRole) (map[int32]map[store.TagRole][]*store.Tag, error) {
	grouped := make(map[int32]map[store.TagRole][]*store.Tag, len(ownerIDs))
	if len(ownerIDs) == 0 {
		return grouped, nil
	}
	list, err := s.store.ListTagAssociations(ctx, &store.FindTagAssociation{OwnerIDs: ownerIDs, Roles: roles})
	if err != nil {
		return nil, apperrors.FromStore(err, "failed to load tags")
	}
	for _, association := range list {
		byRole, ok := grouped[association.OwnerID]
		if !ok {
			byRole = make(map[store.TagRole][]*store.Tag, len(roles))
			grouped[association.OwnerID] = byRole
		}
		byRole[association.Role] = append(byRole[association.Role], association.Tag)
	}
	return grouped, nil
}
