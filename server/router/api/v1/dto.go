package v1

import (
	"github.com/hrygo/circle/plugin/ai/tags"
	"github.com/hrygo/circle/server/service/matcher"
	"github.com/hrygo/circle/server/service/relevance"
	"github.com/hrygo/circle/store"
)

// TagResponse is the JSON shape of a tag.
type TagResponse struct {
	ID           int32   `json:"id"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Level        int32   `json:"level"`
	ParentID     *int32  `json:"parent_id,omitempty"`
	AICategory   string  `json:"ai_category,omitempty"`
	AIConfidence float32 `json:"ai_confidence"`
	UsageCount   int32   `json:"usage_count"`
	CreatedTs    int64   `json:"created_ts"`
	UpdatedTs    int64   `json:"updated_ts"`
}

// MemberResponse is the JSON shape of a member with both tag sets.
type MemberResponse struct {
	ID                 int32          `json:"id"`
	UID                string         `json:"uid"`
	Name               string         `json:"name"`
	Bio                string         `json:"bio"`
	Specialties        string         `json:"specialties"`
	Needs              string         `json:"needs"`
	SkillTags          []*TagResponse `json:"skill_tags"`
	NeedTags           []*TagResponse `json:"need_tags"`
	NeedsTagCompletion bool           `json:"needs_tag_completion"`
	CreatedTs          int64          `json:"created_ts"`
	UpdatedTs          int64          `json:"updated_ts"`
}

// CatalogItemResponse is the JSON shape of a catalog item with its tags.
type CatalogItemResponse struct {
	ID          int32          `json:"id"`
	UID         string         `json:"uid"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Tags        []*TagResponse `json:"tags"`
	CreatedTs   int64          `json:"created_ts"`
	UpdatedTs   int64          `json:"updated_ts"`
}

// CatalogSearchResult is one ranked catalog item.
type CatalogSearchResult struct {
	*CatalogItemResponse
	Tier            string `json:"tier,omitempty"`
	MatchedTagCount int    `json:"matched_tag_count"`
}

// MemberSearchResult is one ranked member.
type MemberSearchResult struct {
	*MemberResponse
	Tier            string `json:"tier,omitempty"`
	MatchedTagCount int    `json:"matched_tag_count"`
}

// OverlapResponse is the complementary intersection of two members.
type OverlapResponse struct {
	SharedSkillToNeed []*TagResponse `json:"shared_skill_to_need"`
	SharedNeedToSkill []*TagResponse `json:"shared_need_to_skill"`
	Score             int            `json:"score"`
}

// MatchResponse is another member ranked by overlap.
type MatchResponse struct {
	Member  *MemberResponse  `json:"member"`
	Overlap *OverlapResponse `json:"overlap"`
	Score   int              `json:"score"`
}

// SubmitTagResponse is a stored tag with its classification.
type SubmitTagResponse struct {
	Tag            *TagResponse         `json:"tag"`
	Classification *tags.Classification `json:"classification"`
	Confidence     float64              `json:"confidence"`
}

// TagSetDiffResponse lists the tag ids attached and detached by a replace.
type TagSetDiffResponse struct {
	Attached []int32 `json:"attached"`
	Detached []int32 `json:"detached"`
}

// SuggestionsResponse lists tag suggestions for a member profile.
type SuggestionsResponse struct {
	Suggestions        []*tags.Suggestion `json:"suggestions"`
	NeedsTagCompletion bool               `json:"needs_tag_completion"`
}

// ErrorResponse is the JSON body of every error.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func convertTag(tag *store.Tag) *TagResponse {
	return &TagResponse{
		ID:           tag.ID,
		Name:         tag.Name,
		Category:     string(tag.Category),
		Level:        tag.Level,
		ParentID:     tag.ParentID,
		AICategory:   tag.AICategory,
		AIConfidence: tag.AIConfidence,
		UsageCount:   tag.UsageCount,
		CreatedTs:    tag.CreatedTs,
		UpdatedTs:    tag.UpdatedTs,
	}
}

func convertTags(list []*store.Tag) []*TagResponse {
	result := make([]*TagResponse, 0, len(list))
	for _, tag := range list {
		result = append(result, convertTag(tag))
	}
	return result
}

func convertMember(member *store.Member, skills, needs []*store.Tag) *MemberResponse {
	return &MemberResponse{
		ID:                 member.ID,
		UID:                member.UID,
		Name:               member.Name,
		Bio:                member.Bio,
		Specialties:        member.Specialties,
		Needs:              member.Needs,
		SkillTags:          convertTags(skills),
		NeedTags:           convertTags(needs),
		NeedsTagCompletion: tags.NeedsTagCompletion(len(skills), len(needs)),
		CreatedTs:          member.CreatedTs,
		UpdatedTs:          member.UpdatedTs,
	}
}

func convertCatalogItem(item *store.CatalogItem, list []*store.Tag) *CatalogItemResponse {
	return &CatalogItemResponse{
		ID:          item.ID,
		UID:         item.UID,
		Title:       item.Title,
		Description: item.Description,
		Tags:        convertTags(list),
		CreatedTs:   item.CreatedTs,
		UpdatedTs:   item.UpdatedTs,
	}
}

func convertCatalogResult(result *relevance.CatalogResult) *CatalogSearchResult {
	return &CatalogSearchResult{
		CatalogItemResponse: convertCatalogItem(result.Item, result.Tags),
		Tier:                string(result.Tier),
		MatchedTagCount:     result.MatchedTagCount,
	}
}

func convertMemberResult(result *relevance.MemberResult) *MemberSearchResult {
	return &MemberSearchResult{
		MemberResponse:  convertMember(result.Member, result.Skills, result.Needs),
		Tier:            string(result.Tier),
		MatchedTagCount: result.MatchedTagCount,
	}
}

func convertOverlap(overlap *matcher.Overlap) *OverlapResponse {
	return &OverlapResponse{
		SharedSkillToNeed: convertTags(overlap.SharedSkillToNeed),
		SharedNeedToSkill: convertTags(overlap.SharedNeedToSkill),
		Score:             overlap.Score(),
	}
}

func convertDiff(diff *store.TagSetDiff) *TagSetDiffResponse {
	response := &TagSetDiffResponse{Attached: []int32{}, Detached: []int32{}}
	if diff != nil {
		response.Attached = append(response.Attached, diff.Attached...)
		response.Detached = append(response.Detached, diff.Detached...)
	}
	return response
}
