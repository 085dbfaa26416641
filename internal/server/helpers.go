package server

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"strings"
	"unicode"

	"threads/internal/middleware"
	"threads/internal/models"
	"threads/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const maxPaginationLimit = 100

// parsePagination extracts limit and offset query parameters with the given
// default limit. A default of 0 leaves the listing unbounded unless the client
// asks for a page; explicit limits are capped at maxPaginationLimit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{Limit: limit, Offset: offset}
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// The message is derived from the parameter name ("postId" -> "Invalid post ID").
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	return append(words, s[start:])
}

// currentUserID returns the caller set by AuthRequired.
func currentUserID(c *fiber.Ctx) uint {
	id, _ := middleware.UserID(c)
	return id
}

// respondError writes err with its default status, or with override when the
// error carries one of the listed codes. 5xx causes are logged, never echoed.
func respondError(c *fiber.Ctx, err error, overrides ...statusOverride) error {
	status := models.StatusFor(err)
	for _, o := range overrides {
		if models.HasCode(err, o.code) {
			status = o.status
			break
		}
	}
	if status >= fiber.StatusInternalServerError {
		observability.GlobalLogger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	return models.RespondWithError(c, status, err)
}

type statusOverride struct {
	code   string
	status int
}

func override(code string, status int) statusOverride {
	return statusOverride{code: code, status: status}
}

// readUpload returns the named multipart file, or nil when the request carries none.
func readUpload(c *fiber.Ctx, field string) (*multipart.FileHeader, []byte, error) {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return nil, nil, nil
	}
	header, err := c.FormFile(field)
	if err != nil {
		if strings.Contains(err.Error(), "there is no uploaded file") {
			return nil, nil, nil
		}
		return nil, nil, models.NewValidationError("Invalid multipart form")
	}

	f, err := header.Open()
	if err != nil {
		return nil, nil, models.NewInternalError(err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, models.NewInternalError(err)
	}
	return header, content, nil
}

// saveUpload stores the named multipart file and returns its public path, or
// nil when no file was sent.
func (s *Server) saveUpload(c *fiber.Ctx, field string) (*string, error) {
	header, content, err := readUpload(c, field)
	if err != nil || header == nil {
		return nil, err
	}
	path, err := s.uploads.Save(c.UserContext(), header.Filename, content)
	if err != nil {
		return nil, err
	}
	return &path, nil
}
