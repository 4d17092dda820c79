package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "github.com/hrygo/circle/server/internal/errors"
	"github.com/hrygo/circle/server/service/taxonomy"
	"github.com/hrygo/circle/store"
)

// CreateTagRequest is the body of POST /tags.
type CreateTagRequest struct {
	Name       string `json:"name" validate:"required"`
	Category   string `json:"category" validate:"omitempty,oneof=skill need method unclassified"`
	Level      int32  `json:"level" validate:"gte=0"`
	ParentName string `json:"parent_name"`
}

// SubmitTagRequest is the body of POST /tags/submit.
type SubmitTagRequest struct {
	Name string `json:"name" validate:"required"`
	Role string `json:"role" validate:"omitempty,oneof=skill need catalog"`
}

// ClassifyTagRequest is the body of POST /tags/classify.
type ClassifyTagRequest struct {
	Text string `json:"text" validate:"required"`
}

// SearchTags searches tags by name.
// GET /api/v1/tags?query=&limit=
func (s *APIV1Service) SearchTags(c echo.Context) error {
	limit, err := parseLimit(c)
	if err != nil {
		return err
	}
	list, err := s.Registry.Search(c.Request().Context(), c.QueryParam("query"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convertTags(list))
}

// ListPopularTags lists tags by usage count.
// GET /api/v1/tags/popular?limit=
func (s *APIV1Service) ListPopularTags(c echo.Context) error {
	limit, err := parseLimit(c)
	if err != nil {
		return err
	}
	list, err := s.Registry.Popular(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convertTags(list))
}

// CreateTag finds or creates a tag.
// POST /api/v1/tags
func (s *APIV1Service) CreateTag(c echo.Context) error {
	var req CreateTagRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	tag, err := s.Registry.FindOrCreate(c.Request().Context(), &taxonomy.FindOrCreateRequest{
		Name:       req.Name,
		Category:   store.TagCategory(req.Category),
		Level:      req.Level,
		ParentName: req.ParentName,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convertTag(tag))
}

// SubmitTag classifies a free-text tag and stores the classification.
// POST /api/v1/tags/submit
func (s *APIV1Service) SubmitTag(c echo.Context) error {
	var req SubmitTagRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	result, err := s.Registry.Submit(c.Request().Context(), req.Name, store.TagRole(req.Role))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &SubmitTagResponse{
		Tag:            convertTag(result.Tag),
		Classification: result.Classification,
		Confidence:     result.Confidence,
	})
}

// ClassifyTag classifies text without storing anything.
// POST /api/v1/tags/classify
func (s *APIV1Service) ClassifyTag(c echo.Context) error {
	var req ClassifyTagRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	result, err := s.Classifier.Classify(c.Request().Context(), req.Text)
	if err != nil {
		return apperrors.Internal("failed to classify tag", err)
	}
	return c.JSON(http.StatusOK, result)
}

// ListChildTags lists the direct children of a tag.
// GET /api/v1/tags/:id/children
func (s *APIV1Service) ListChildTags(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	list, err := s.Registry.Children(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convertTags(list))
}
