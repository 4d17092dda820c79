package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	apperrors "github.com/hrygo/circle/server/internal/errors"
	"github.com/hrygo/circle/server/service/relevance"
	"github.com/hrygo/circle/server/service/taxonomy"
	"github.com/hrygo/circle/store"
)

// CreateCatalogItemRequest is the body of POST /catalog.
type CreateCatalogItemRequest struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	Tags        []string `json:"tags" validate:"dive,required"`
}

// ReplaceCatalogTagsRequest is the body of PUT /catalog/:id/tags.
type ReplaceCatalogTagsRequest struct {
	TagIDs []int32 `json:"tag_ids" validate:"dive,gt=0"`
}

// SearchCatalog ranks catalog items against a query, optionally filtered by tag id.
// GET /api/v1/catalog?query=&tag=
func (s *APIV1Service) SearchCatalog(c echo.Context) error {
	query := &relevance.CatalogQuery{Text: c.QueryParam("query")}
	if raw := strings.TrimSpace(c.QueryParam("tag")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return apperrors.InvalidArgumentf("invalid tag id: %q", raw)
		}
		tagID := int32(id)
		query.TagID = &tagID
	}

	results, err := s.Search.SearchCatalog(c.Request().Context(), query)
	if err != nil {
		return err
	}
	response := make([]*CatalogSearchResult, 0, len(results))
	for _, result := range results {
		response = append(response, convertCatalogResult(result))
	}
	return c.JSON(http.StatusOK, response)
}

// CreateCatalogItem creates a catalog item with its tags.
// POST /api/v1/catalog
func (s *APIV1Service) CreateCatalogItem(c echo.Context) error {
	var req CreateCatalogItemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	item, err := s.Ledger.CreateCatalogItem(ctx, &taxonomy.CreateCatalogItemRequest{
		Title:       req.Title,
		Description: req.Description,
		TagNames:    req.Tags,
	})
	if err != nil {
		return err
	}
	list, err := s.Ledger.ListTags(ctx, item.ID, store.TagRoleCatalog)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, convertCatalogItem(item, list))
}

// ReplaceCatalogTags replaces the tag set of a catalog item.
// PUT /api/v1/catalog/:id/tags
func (s *APIV1Service) ReplaceCatalogTags(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req ReplaceCatalogTagsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	diff, err := s.Ledger.ReplaceSet(c.Request().Context(), id, store.TagRoleCatalog, req.TagIDs)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convertDiff(diff))
}

// DeleteCatalogItem deletes a catalog item and detaches all of its tags.
// DELETE /api/v1/catalog/:id
func (s *APIV1Service) DeleteCatalogItem(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := s.Ledger.DeleteCatalogItem(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
