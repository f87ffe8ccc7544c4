package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/sightline/internal/core/domain"
)

// ListTilesHandler returns a page of the raster tile catalogue.
func ListTilesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pg := pageParams(c)

		tiles, total, err := deps.Tiles.List(c.UserContext(), pg.Offset, pg.Limit)
		if err != nil {
			return errFromDomain(c, err)
		}

		pg.Total = total
		SetLinkHeaders(c, pg)
		return c.JSON(Page[domain.Tile]{Data: tiles, Pagination: pg})
	}
}

// GetTileHandler returns a single tile by id.
func GetTileHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil || id <= 0 {
			return errBadRequest(c, "id must be a positive integer")
		}

		tile, err := deps.Tiles.GetByID(c.UserContext(), id)
		if err != nil {
			return errFromDomain(c, err)
		}

		c.Set("Cache-Control", "public, max-age=600")
		return c.JSON(tile)
	}
}

// CoveringTilesHandler returns the tiles covering ?lon=&lat=, newest first.
func CoveringTilesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := queryPoint(c, "lon", "lat")
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		tiles, err := deps.Tiles.Covering(c.UserContext(), p)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(tiles)
	}
}
