package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/sightline/internal/core/domain"
	"github.com/samirrijal/sightline/internal/pkg/geospatial"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	sampleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ElevationSample",
		Fields: graphql.Fields{
			"point":       &graphql.Field{Type: geoPointType},
			"elevation_m": &graphql.Field{Type: graphql.Float},
		},
	})

	profileType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Profile",
		Fields: graphql.Fields{
			"start":     &graphql.Field{Type: geoPointType},
			"end":       &graphql.Field{Type: geoPointType},
			"samples":   &graphql.Field{Type: graphql.NewList(sampleType)},
			"length_km": &graphql.Field{Type: graphql.Float},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"min_lat": &graphql.Field{Type: graphql.Float},
			"min_lon": &graphql.Field{Type: graphql.Float},
			"max_lat": &graphql.Field{Type: graphql.Float},
			"max_lon": &graphql.Field{Type: graphql.Float},
		},
	})

	tileType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Tile",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.ID},
			"filename":  &graphql.Field{Type: graphql.String},
			"rast_date": &graphql.Field{Type: graphql.DateTime},
			"bounds":    &graphql.Field{Type: boundsType},
		},
	})

	visibilityType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Visibility",
		Fields: graphql.Fields{
			"visible":     &graphql.Field{Type: graphql.Boolean},
			"distance_km": &graphql.Field{Type: graphql.Float},
			"samples":     &graphql.Field{Type: graphql.Int},
		},
	})

	pointArgs := func(prefix string) graphql.FieldConfigArgument {
		return graphql.FieldConfigArgument{
			prefix + "Lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
			prefix + "Lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
		}
	}
	merge := func(sets ...graphql.FieldConfigArgument) graphql.FieldConfigArgument {
		out := graphql.FieldConfigArgument{}
		for _, s := range sets {
			for k, v := range s {
				out[k] = v
			}
		}
		return out
	}
	point := func(args map[string]interface{}, prefix string) domain.GeoPoint {
		return domain.GeoPoint{Lon: args[prefix+"Lon"].(float64), Lat: args[prefix+"Lat"].(float64)}
	}
	samplesArg := graphql.FieldConfigArgument{
		"samples": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: deps.defaultSamples()},
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"elevation": &graphql.Field{
				Type:        graphql.Float,
				Description: "Terrain height in meters at a point",
				Args: graphql.FieldConfigArgument{
					"lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Profiles.GetElevation(p.Context, domain.GeoPoint{
						Lon: p.Args["lon"].(float64),
						Lat: p.Args["lat"].(float64),
					})
				},
			},
			"profile": &graphql.Field{
				Type:        profileType,
				Description: "Evenly spaced elevation samples between two points",
				Args:        merge(pointArgs("start"), pointArgs("end"), samplesArg),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Profiles.SampleProfile(p.Context,
						point(p.Args, "start"), point(p.Args, "end"), p.Args["samples"].(int))
				},
			},
			"lineOfSightBlocked": &graphql.Field{
				Type:        graphql.Boolean,
				Description: "Radar mast check: terrain above a line decaying from radarHeight to zero",
				Args: merge(pointArgs("start"), pointArgs("end"), samplesArg, graphql.FieldConfigArgument{
					"radarHeight": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				}),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Sightlines.IsBlocked(p.Context,
						point(p.Args, "start"), point(p.Args, "end"),
						p.Args["radarHeight"].(float64), p.Args["samples"].(int))
				},
			},
			"visibility": &graphql.Field{
				Type:        visibilityType,
				Description: "Curvature-aware sightline between two elevated observers",
				Args: merge(pointArgs("from"), pointArgs("to"), graphql.FieldConfigArgument{
					"fromHeight": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"toHeight":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				}),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					from := domain.Observer{Point: point(p.Args, "from"), HeightMeters: p.Args["fromHeight"].(float64)}
					to := domain.Observer{Point: point(p.Args, "to"), HeightMeters: p.Args["toHeight"].(float64)}
					visible, err := deps.Sightlines.IsVisible(p.Context, from, to)
					if err != nil {
						return nil, err
					}
					return VisibilityResponse{
						Visible:    visible,
						DistanceKm: geospatial.HaversineKm(from.Point.Lat, from.Point.Lon, to.Point.Lat, to.Point.Lon),
						Samples:    deps.Profiles.DenseSampleCount(from.Point, to.Point),
					}, nil
				},
			},
			"tiles": &graphql.Field{
				Type:        graphql.NewList(tileType),
				Description: "Raster tiles, paginated by offset and limit",
				Args: graphql.FieldConfigArgument{
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 100},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					tiles, _, err := deps.Tiles.List(p.Context, p.Args["offset"].(int), p.Args["limit"].(int))
					return tiles, err
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
