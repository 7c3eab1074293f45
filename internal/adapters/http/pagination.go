package http

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

// Pagination contains offset-based pagination info.
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total"`
}

// paginate returns one window of items. offset is clamped to the list.
func paginate[T any](items []T, offset, limit int) ([]T, Pagination) {
	total := len(items)
	offset = min(max(offset, 0), total)
	end := min(offset+limit, total)
	return items[offset:end], Pagination{Offset: offset, Limit: limit, Total: total}
}

// SetLinkHeaders adds RFC 8288 Link headers for paginated responses.
// Every other query parameter of the request is preserved so the links
// address the same search.
func SetLinkHeaders(c *fiber.Ctx, p Pagination) {
	base := c.Path()
	link := func(offset int, rel string) string {
		args := fasthttp.AcquireArgs()
		defer fasthttp.ReleaseArgs(args)
		c.Request().URI().QueryArgs().CopyTo(args)
		args.Set("page_offset", strconv.Itoa(offset))
		args.Set("limit", strconv.Itoa(p.Limit))
		return fmt.Sprintf(`<%s?%s>; rel="%s"`, base, args.String(), rel)
	}

	links := []string{link(0, "first")}
	if p.Offset > 0 {
		links = append(links, link(max(p.Offset-p.Limit, 0), "prev"))
	}
	if p.Offset+p.Limit < p.Total {
		links = append(links, link(p.Offset+p.Limit, "next"))
	}
	links = append(links, link(max(p.Total-p.Limit, 0), "last"))

	c.Set("Link", strings.Join(links, ", "))
}
