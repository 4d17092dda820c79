package v1

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/circle/internal/profile"
	"github.com/hrygo/circle/plugin/ai/tags"
	apperrors "github.com/hrygo/circle/server/internal/errors"
	"github.com/hrygo/circle/internal/observability"
	"github.com/hrygo/circle/server/service/matcher"
	"github.com/hrygo/circle/server/service/relevance"
	"github.com/hrygo/circle/server/service/taxonomy"
	"github.com/hrygo/circle/store"
)

// APIV1Service serves the JSON API under /api/v1.
type APIV1Service struct {
	Profile    *profile.Profile
	Store      *store.Store
	Classifier tags.Classifier
	Registry   taxonomy.Registry
	Ledger     taxonomy.Ledger
	Search     relevance.Service
	Matcher    matcher.Service
}

// NewAPIV1Service wires the services on top of the store.
func NewAPIV1Service(profile *profile.Profile, store *store.Store) *APIV1Service {
	classifier := tags.NewFromProfile(profile)
	registry := taxonomy.NewRegistry(store, classifier, profile.TagSearchLimit)
	return &APIV1Service{
		Profile:    profile,
		Store:      store,
		Classifier: classifier,
		Registry:   registry,
		Ledger:     taxonomy.NewLedger(store, registry),
		Search:     relevance.NewService(store, profile.SearchMaxResults),
		Matcher:    matcher.NewService(store),
	}
}

// RegisterRoutes registers every API route on the group.
func (s *APIV1Service) RegisterRoutes(g *echo.Group) {
	g.GET("/tags", s.SearchTags)
	g.POST("/tags", s.CreateTag)
	g.GET("/tags/popular", s.ListPopularTags)
	g.POST("/tags/submit", s.SubmitTag)
	g.POST("/tags/classify", s.ClassifyTag)
	g.GET("/tags/:id/children", s.ListChildTags)

	g.GET("/members", s.SearchMembers)
	g.POST("/members", s.CreateMember)
	g.GET("/members/:id", s.GetMember)
	g.DELETE("/members/:id", s.DeleteMember)
	g.PUT("/members/:id/tags", s.ReplaceMemberTags)
	g.POST("/members/:id/tags/:role/:tagId", s.AttachMemberTag)
	g.DELETE("/members/:id/tags/:role/:tagId", s.DetachMemberTag)
	g.GET("/members/:id/matches", s.ListMatches)
	g.GET("/members/:id/overlap/:otherId", s.GetOverlap)
	g.GET("/members/:id/suggestions", s.ListSuggestions)

	g.GET("/catalog", s.SearchCatalog)
	g.POST("/catalog", s.CreateCatalogItem)
	g.PUT("/catalog/:id/tags", s.ReplaceCatalogTags)
	g.DELETE("/catalog/:id", s.DeleteCatalogItem)
}

// CustomValidator adapts go-playground/validator to echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates the request validator.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate validates a bound request body.
func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInvalidArgument, "invalid request")
	}
	return nil
}

// bindAndValidate binds the request body into req and validates it.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInvalidArgument, "malformed request body")
	}
	return c.Validate(req)
}

// HTTPErrorHandler writes coded errors as ErrorResponse JSON.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := apperrors.HTTPStatus(err)
	response := ErrorResponse{
		Code:    string(apperrors.GetCodeFromError(err, apperrors.ErrCodeInternal)),
		Message: "internal error",
	}

	var appErr *apperrors.AppError
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &appErr):
		response.Message = appErr.Message
		if appErr.Code == apperrors.ErrCodeInvalidArgument && appErr.Cause != nil {
			response.Message = appErr.Message + ": " + appErr.Cause.Error()
		}
	case errors.As(err, &httpErr):
		status = httpErr.Code
		response.Code = string(codeForStatus(status))
		if msg, ok := httpErr.Message.(string); ok {
			response.Message = msg
		} else {
			response.Message = http.StatusText(status)
		}
	}

	if status >= http.StatusInternalServerError {
		observability.LoggerFromContext(c.Request().Context()).Error("request error",
			"error", err,
			"path", c.Path())
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, response)
	}
	if err != nil {
		slog.Error("failed to write error response", "error", err)
	}
}

func codeForStatus(status int) apperrors.ErrorCode {
	switch status {
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return apperrors.ErrCodeNotFound
	case http.StatusTooManyRequests:
		return apperrors.ErrCodeRateLimitExceeded
	}
	if status >= 400 && status < 500 {
		return apperrors.ErrCodeInvalidArgument
	}
	return apperrors.ErrCodeInternal
}

// parseID parses a positive int32 path parameter.
func parseID(c echo.Context, name string) (int32, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return 0, apperrors.InvalidArgumentf("invalid %s: %q", name, raw)
	}
	return int32(id), nil
}

// parseLimit parses the optional limit query parameter. Absent means 0.
func parseLimit(c echo.Context) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, apperrors.InvalidArgumentf("invalid limit: %q", raw)
	}
	return limit, nil
}
