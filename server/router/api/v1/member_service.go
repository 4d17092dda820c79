package v1

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/circle/plugin/ai/tags"
	apperrors "github.com/hrygo/circle/server/internal/errors"
	"github.com/hrygo/circle/server/service/relevance"
	"github.com/hrygo/circle/server/service/taxonomy"
	"github.com/hrygo/circle/store"
)

// CreateMemberRequest is the body of POST /members.
type CreateMemberRequest struct {
	Name        string   `json:"name" validate:"required"`
	Bio         string   `json:"bio"`
	Specialties string   `json:"specialties"`
	Needs       string   `json:"needs"`
	SkillTags   []string `json:"skill_tags" validate:"dive,required"`
	NeedTags    []string `json:"need_tags" validate:"dive,required"`
}

// ReplaceMemberTagsRequest is the body of PUT /members/:id/tags.
// Both sets are replaced; an omitted set becomes empty.
type ReplaceMemberTagsRequest struct {
	SkillTags []string `json:"skill_tags" validate:"dive,required"`
	NeedTags  []string `json:"need_tags" validate:"dive,required"`
}

// parseMemberRole accepts the member roles only.
func parseMemberRole(c echo.Context) (store.TagRole, error) {
	role := store.TagRole(c.Param("role"))
	if role != store.TagRoleSkill && role != store.TagRoleNeed {
		return "", apperrors.InvalidArgumentf("invalid member tag role %q", role)
	}
	return role, nil
}

// memberResponse loads both tag sets of the member.
func (s *APIV1Service) memberResponse(ctx context.Context, member *store.Member) (*MemberResponse, error) {
	skills, err := s.Ledger.ListTags(ctx, member.ID, store.TagRoleSkill)
	if err != nil {
		return nil, err
	}
	needs, err := s.Ledger.ListTags(ctx, member.ID, store.TagRoleNeed)
	if err != nil {
		return nil, err
	}
	return convertMember(member, skills, needs), nil
}

// replaceMemberTags replaces both member tag sets by name.
func (s *APIV1Service) replaceMemberTags(ctx context.Context, memberID int32, skillTags, needTags []string) error {
	if _, err := s.Ledger.ReplaceByNames(ctx, memberID, store.TagRoleSkill, skillTags); err != nil {
		return err
	}
	if _, err := s.Ledger.ReplaceByNames(ctx, memberID, store.TagRoleNeed, needTags); err != nil {
		return err
	}
	return nil
}

// SearchMembers ranks members against a query, optionally filtered by tags.
// Numeric tag values filter by id, anything else by exact name.
// GET /api/v1/members?query=&tag=
func (s *APIV1Service) SearchMembers(c echo.Context) error {
	query := &relevance.MemberQuery{Text: c.QueryParam("query")}
	for _, raw := range c.QueryParams()["tag"] {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if id, err := strconv.ParseInt(raw, 10, 32); err == nil {
			query.TagIDs = append(query.TagIDs, int32(id))
		} else {
			query.TagNames = append(query.TagNames, raw)
		}
	}

	results, err := s.Search.SearchMembers(c.Request().Context(), query)
	if err != nil {
		return err
	}
	response := make([]*MemberSearchResult, 0, len(results))
	for _, result := range results {
		response = append(response, convertMemberResult(result))
	}
	return c.JSON(http.StatusOK, response)
}

// CreateMember creates a member and its optional tag sets.
// POST /api/v1/members
func (s *APIV1Service) CreateMember(c echo.Context) error {
	var req CreateMemberRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	member, err := s.Ledger.CreateMember(ctx, &taxonomy.CreateMemberRequest{
		Name:        req.Name,
		Bio:         req.Bio,
		Specialties: req.Specialties,
		Needs:       req.Needs,
	})
	if err != nil {
		return err
	}
	if len(req.SkillTags) > 0 || len(req.NeedTags) > 0 {
		if err := s.replaceMemberTags(ctx, member.ID, req.SkillTags, req.NeedTags); err != nil {
			return err
		}
	}
	response, err := s.memberResponse(ctx, member)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, response)
}

// GetMember returns a member with both tag sets.
// GET /api/v1/members/:id
func (s *APIV1Service) GetMember(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	member, err := s.Ledger.GetMember(ctx, id)
	if err != nil {
		return err
	}
	response, err := s.memberResponse(ctx, member)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, response)
}

// DeleteMember deletes a member and detaches all of its tags.
// DELETE /api/v1/members/:id
func (s *APIV1Service) DeleteMember(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := s.Ledger.DeleteMember(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ReplaceMemberTags replaces both tag sets of a member by tag name.
// PUT /api/v1/members/:id/tags
func (s *APIV1Service) ReplaceMemberTags(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req ReplaceMemberTagsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	member, err := s.Ledger.GetMember(ctx, id)
	if err != nil {
		return err
	}
	if err := s.replaceMemberTags(ctx, id, req.SkillTags, req.NeedTags); err != nil {
		return err
	}
	response, err := s.memberResponse(ctx, member)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, response)
}

// AttachMemberTag attaches one tag to a member.
// POST /api/v1/members/:id/tags/:role/:tagId
func (s *APIV1Service) AttachMemberTag(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	tagID, err := parseID(c, "tagId")
	if err != nil {
		return err
	}
	role, err := parseMemberRole(c)
	if err != nil {
		return err
	}
	attached, err := s.Ledger.Attach(c.Request().Context(), tagID, id, role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"attached": attached})
}

// DetachMemberTag detaches one tag from a member.
// DELETE /api/v1/members/:id/tags/:role/:tagId
func (s *APIV1Service) DetachMemberTag(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	tagID, err := parseID(c, "tagId")
	if err != nil {
		return err
	}
	role, err := parseMemberRole(c)
	if err != nil {
		return err
	}
	detached, err := s.Ledger.Detach(c.Request().Context(), tagID, id, role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"detached": detached})
}

// ListMatches ranks members complementary to this one.
// GET /api/v1/members/:id/matches?limit=
func (s *APIV1Service) ListMatches(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	limit, err := parseLimit(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	matches, err := s.Matcher.FindMatches(ctx, id, limit)
	if err != nil {
		return err
	}
	response := make([]*MatchResponse, 0, len(matches))
	for _, match := range matches {
		member, err := s.memberResponse(ctx, match.Member)
		if err != nil {
			return err
		}
		response = append(response, &MatchResponse{
			Member:  member,
			Overlap: convertOverlap(match.Overlap),
			Score:   match.Score,
		})
	}
	return c.JSON(http.StatusOK, response)
}

// GetOverlap compares two members.
// GET /api/v1/members/:id/overlap/:otherId
func (s *APIV1Service) GetOverlap(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	otherID, err := parseID(c, "otherId")
	if err != nil {
		return err
	}
	overlap, err := s.Matcher.Overlap(c.Request().Context(), id, otherID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convertOverlap(overlap))
}

// ListSuggestions suggests tags from the member's free-text profile.
// GET /api/v1/members/:id/suggestions
func (s *APIV1Service) ListSuggestions(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	member, err := s.Ledger.GetMember(ctx, id)
	if err != nil {
		return err
	}
	response, err := s.memberResponse(ctx, member)
	if err != nil {
		return err
	}
	suggestions, err := tags.Suggest(ctx, s.Classifier, member.Specialties, member.Needs)
	if err != nil {
		return apperrors.Internal("failed to suggest tags", err)
	}
	return c.JSON(http.StatusOK, &SuggestionsResponse{
		Suggestions:        suggestions,
		NeedsTagCompletion: response.NeedsTagCompletion,
	})
}
