package v1

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/circle/internal/profile"
	teststore "github.com/hrygo/circle/store/test"
)

type testAPI struct {
	t    *testing.T
	echo *echo.Echo
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ts := teststore.NewTestingStore(context.Background(), t)
	p := &profile.Profile{}
	p.FromEnv()

	e := echo.New()
	e.Validator = NewValidator()
	e.HTTPErrorHandler = HTTPErrorHandler
	NewAPIV1Service(p, ts).RegisterRoutes(e.Group("/api/v1"))
	return &testAPI{t: t, echo: e}
}

// do sends a request and decodes a JSON response into out when out is non-nil.
func (a *testAPI) do(method, path, body string, out any) int {
	a.t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func TestTagEndpoints(t *testing.T) {
	api := newTestAPI(t)

	var parent TagResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/v1/tags", `{"name":"技术"}`, &parent))
	assert.Equal(t, "unclassified", parent.Category)
	assert.Equal(t, int32(1), parent.Level)

	var child TagResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/v1/tags", `{"name":"前端开发","category":"skill","parent_name":"技术"}`, &child))
	assert.Equal(t, int32(2), child.Level)
	require.NotNil(t, child.ParentID)
	assert.Equal(t, parent.ID, *child.ParentID)

	var again TagResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/v1/tags", `{"name":"前端开发"}`, &again))
	assert.Equal(t, child.ID, again.ID)

	var children []*TagResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, fmt.Sprintf("/api/v1/tags/%d/children", parent.ID), "", &children))
	require.Len(t, children, 1)
	assert.Equal(t, "前端开发", children[0].Name)

	var found []*TagResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/tags?query=%E5%89%8D%E7%AB%AF&limit=5", "", &found))
	require.Len(t, found, 1)

	var submitted SubmitTagResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/v1/tags/submit", `{"name":"找投资","role":"skill"}`, &submitted))
	assert.Equal(t, "skill", submitted.Tag.Category)
	assert.Equal(t, "need", submitted.Tag.AICategory)
	assert.Equal(t, 0.3, submitted.Confidence)

	var classified map[string]any
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/v1/tags/classify", `{"text":"UI设计"}`, &classified))
	assert.Equal(t, "skill", classified["category"])
	assert.Equal(t, 0.8, classified["confidence"])

	var popular []*TagResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/tags/popular", "", &popular))
	assert.Len(t, popular, 3)
}

func TestErrorResponses(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"missing name", http.MethodPost, "/api/v1/tags", `{"name":""}`, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"unknown category", http.MethodPost, "/api/v1/tags", `{"name":"x","category":"hobby"}`, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"whitespace name", http.MethodPost, "/api/v1/tags", `{"name":"   "}`, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"malformed body", http.MethodPost, "/api/v1/tags", `{"name":`, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"bad limit", http.MethodGet, "/api/v1/tags?limit=abc", "", http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"unknown tag", http.MethodGet, "/api/v1/tags/999/children", "", http.StatusNotFound, "NOT_FOUND"},
		{"bad id", http.MethodDelete, "/api/v1/members/abc", "", http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"unknown member", http.MethodDelete, "/api/v1/members/999", "", http.StatusNotFound, "NOT_FOUND"},
		{"catalog role on member", http.MethodPost, "/api/v1/members/1/tags/catalog/1", "", http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"bad catalog tag filter", http.MethodGet, "/api/v1/catalog?tag=design", "", http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"unknown route", http.MethodGet, "/api/v1/nope", "", http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var response ErrorResponse
			assert.Equal(t, tt.status, api.do(tt.method, tt.path, tt.body, &response))
			assert.Equal(t, tt.code, response.Code)
			assert.NotEmpty(t, response.Message)
		})
	}
}

func TestMemberEndpoints(t *testing.T) {
	api := newTestAPI(t)

	var alice MemberResponse
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/members",
		`{"name":"alice","specialties":"前端开发、UI设计","needs":"找投资","skill_tags":["前端开发"]}`, &alice))
	assert.NotEmpty(t, alice.UID)
	require.Len(t, alice.SkillTags, 1)
	assert.Empty(t, alice.NeedTags)
	assert.True(t, alice.NeedsTagCompletion)

	var suggestions SuggestionsResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, fmt.Sprintf("/api/v1/members/%d/suggestions", alice.ID), "", &suggestions))
	assert.Len(t, suggestions.Suggestions, 3)
	assert.True(t, suggestions.NeedsTagCompletion)

	var updated MemberResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodPut, fmt.Sprintf("/api/v1/members/%d/tags", alice.ID),
		`{"skill_tags":["前端开发","UI设计"],"need_tags":["找投资"]}`, &updated))
	assert.Len(t, updated.SkillTags, 2)
	assert.Len(t, updated.NeedTags, 1)
	assert.False(t, updated.NeedsTagCompletion)

	var bob MemberResponse
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/members",
		`{"name":"bob","skill_tags":["找投资"],"need_tags":["UI设计"]}`, &bob))

	var overlap OverlapResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, fmt.Sprintf("/api/v1/members/%d/overlap/%d", alice.ID, bob.ID), "", &overlap))
	assert.Equal(t, 2, overlap.Score)
	require.Len(t, overlap.SharedSkillToNeed, 1)
	assert.Equal(t, "UI设计", overlap.SharedSkillToNeed[0].Name)

	var matches []*MatchResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, fmt.Sprintf("/api/v1/members/%d/matches", alice.ID), "", &matches))
	require.Len(t, matches, 1)
	assert.Equal(t, bob.ID, matches[0].Member.ID)

	var results []*MemberSearchResult
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/members?tag=%E6%89%BE%E6%8A%95%E8%B5%84", "", &results))
	assert.Len(t, results, 2)

	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/members?query=bob", "", &results))
	require.Len(t, results, 1)
	assert.Equal(t, "name", results[0].Tier)

	// Attach and detach a single tag.
	var attached map[string]bool
	require.Equal(t, "前端开发", updated.SkillTags[1].Name)
	frontendID := updated.SkillTags[1].ID
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, fmt.Sprintf("/api/v1/members/%d/tags/need/%d", bob.ID, frontendID), "", &attached))
	assert.True(t, attached["attached"])
	var detached map[string]bool
	require.Equal(t, http.StatusOK, api.do(http.MethodDelete, fmt.Sprintf("/api/v1/members/%d/tags/need/%d", bob.ID, frontendID), "", &detached))
	assert.True(t, detached["detached"])

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, fmt.Sprintf("/api/v1/members/%d", bob.ID), "", nil))
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, fmt.Sprintf("/api/v1/members/%d", bob.ID), "", nil))
}

func TestCatalogEndpoints(t *testing.T) {
	api := newTestAPI(t)

	var item CatalogItemResponse
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/catalog",
		`{"title":"前端训练营","description":"React 与 Vue","tags":["前端开发","设计思维","敏捷开发"]}`, &item))
	require.Len(t, item.Tags, 3)

	var results []*CatalogSearchResult
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/catalog?query=%E8%AE%BE%E8%AE%A1", "", &results))
	require.Len(t, results, 1)
	assert.Equal(t, "tag", results[0].Tier)
	assert.Equal(t, 1, results[0].MatchedTagCount)

	tagID := item.Tags[0].ID
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, fmt.Sprintf("/api/v1/catalog?tag=%d", tagID), "", &results))
	assert.Len(t, results, 1)

	var diff TagSetDiffResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodPut, fmt.Sprintf("/api/v1/catalog/%d/tags", item.ID),
		fmt.Sprintf(`{"tag_ids":[%d]}`, tagID), &diff))
	assert.Empty(t, diff.Attached)
	assert.Len(t, diff.Detached, 2)

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, fmt.Sprintf("/api/v1/catalog/%d", item.ID), "", nil))

	var popular []*TagResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/tags/popular", "", &popular))
	require.Len(t, popular, 3)
	for _, tag := range popular {
		assert.Equal(t, int32(0), tag.UsageCount, tag.Name)
	}
}
