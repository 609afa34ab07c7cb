package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localrally/petitiond/internal/types"
	"github.com/localrally/petitiond/internal/utils"
)

// respondError renders a service error; anything that is not a classified
// DomainError is masked as an internal fault.
func respondError(c *fiber.Ctx, err error) error {
	if de, ok := err.(*types.DomainError); ok {
		return utils.DomainErrorResponse(c, de)
	}
	return utils.DomainErrorResponse(c, types.NewError(types.Fault, "%v", err))
}

// queryParam returns the raw value of a query parameter, or nil when the
// parameter was absent from the request.
func queryParam(c *fiber.Ctx, key string) *string {
	args := c.Context().QueryArgs()
	if !args.Has(key) {
		return nil
	}
	value := string(args.Peek(key))
	return &value
}

// parseCategoryIDs extracts category ids from query parameters,
// supporting both multiple 'categoryIds' keys and comma-separated values.
func parseCategoryIDs(c *fiber.Ctx) []string {
	var ids []string

	args := c.Context().QueryArgs()
	for key, value := range args.All() {
		if string(key) == "categoryIds" {
			// Split by comma in case the value itself is comma-separated
			vals := strings.Split(string(value), ",")
			for _, v := range vals {
				v = strings.TrimSpace(v)
				if v != "" {
					ids = append(ids, v)
				}
			}
		}
	}

	return ids
}

// pathID parses a numeric path parameter, failing InvalidRequest on
// anything that is not a decimal integer.
func pathID(c *fiber.Ctx, name string) (int64, error) {
	raw := c.Params(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, types.NewError(types.InvalidRequest, "%s must be an integer, got %q", name, raw)
	}
	return id, nil
}
