package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 100
)

// Page wraps one page of list results.
type Page[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Pagination contains offset-based pagination info.
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total"`
}

// pageParams reads ?offset=&limit=. Out of range values fall back to the
// defaults rather than failing the request.
func pageParams(c *fiber.Ctx) Pagination {
	p := Pagination{
		Offset: c.QueryInt("offset", 0),
		Limit:  c.QueryInt("limit", defaultPageLimit),
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 || p.Limit > maxPageLimit {
		p.Limit = defaultPageLimit
	}
	return p
}

// SetLinkHeaders adds RFC 8288 first/prev/next/last links. Query parameters
// other than offset and limit are carried over.
func SetLinkHeaders(c *fiber.Ctx, p Pagination) {
	q := url.Values{}
	for k, v := range c.Queries() {
		if k != "offset" && k != "limit" {
			q.Set(k, v)
		}
	}
	q.Set("limit", strconv.Itoa(p.Limit))

	link := func(offset int, rel string) string {
		q.Set("offset", strconv.Itoa(offset))
		return fmt.Sprintf(`<%s?%s>; rel="%s"`, c.Path(), q.Encode(), rel)
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
