package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/adityaverma/transitlens/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"min_lat": &graphql.Field{Type: graphql.Float},
			"min_lng": &graphql.Field{Type: graphql.Float},
			"max_lat": &graphql.Field{Type: graphql.Float},
			"max_lng": &graphql.Field{Type: graphql.Float},
		},
	})

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Route",
		Fields: graphql.Fields{
			"id":             &graphql.Field{Type: graphql.String},
			"route_number":   &graphql.Field{Type: graphql.String},
			"route_name":     &graphql.Field{Type: graphql.String},
			"starting_point": &graphql.Field{Type: graphql.String},
			"ending_point":   &graphql.Field{Type: graphql.String},
			"stops":          &graphql.Field{Type: graphql.NewList(graphql.String)},
			"polyline":       &graphql.Field{Type: graphql.NewList(geoPointType)},
			"center":         &graphql.Field{Type: geoPointType},
			"bounds":         &graphql.Field{Type: boundsType},
			"length_meters":  &graphql.Field{Type: graphql.Float},
		},
	})

	markerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "BusMarker",
		Fields: graphql.Fields{
			"bus_id":       &graphql.Field{Type: graphql.String},
			"route_id":     &graphql.Field{Type: graphql.String},
			"route_name":   &graphql.Field{Type: graphql.String},
			"location":     &graphql.Field{Type: geoPointType},
			"crowd_level":  &graphql.Field{Type: graphql.String},
			"highlighted":  &graphql.Field{Type: graphql.Boolean},
			"last_updated": &graphql.Field{Type: graphql.String},
		},
	})

	renderStateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "MapState",
		Fields: graphql.Fields{
			"route_id": &graphql.Field{Type: graphql.String},
			"center":   &graphql.Field{Type: geoPointType},
			"bounds":   &graphql.Field{Type: boundsType},
			"polyline": &graphql.Field{Type: graphql.NewList(geoPointType)},
			"markers":  &graphql.Field{Type: graphql.NewList(markerType)},
		},
	})

	etaStopType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ETAStop",
		Fields: graphql.Fields{
			"stop":            &graphql.Field{Type: graphql.String},
			"distance_meters": &graphql.Field{Type: graphql.Float},
			"eta_seconds":     &graphql.Field{Type: graphql.Float},
		},
	})

	busETAType := graphql.NewObject(graphql.ObjectConfig{
		Name: "BusETA",
		Fields: graphql.Fields{
			"bus_id":             &graphql.Field{Type: graphql.String},
			"current_speed_kmph": &graphql.Field{Type: graphql.Float},
			"eta":                &graphql.Field{Type: graphql.NewList(etaStopType)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"routes": &graphql.Field{
				Type:        graphql.NewList(routeType),
				Description: "Search routes; empty query lists all",
				Args: graphql.FieldConfigArgument{
					"query": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					q := p.Args["query"].(string)
					return deps.Routes.Search(p.Context, q)
				},
			},
			"route": &graphql.Field{
				Type:        routeType,
				Description: "Get a route by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					return deps.Routes.GetByID(p.Context, id)
				},
			},
			"liveBuses": &graphql.Field{
				Type:        graphql.NewList(markerType),
				Description: "Markers from the latest complete bus snapshot",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					snap, ok := deps.Render.Snapshot()
					if !ok {
						return []domain.BusPosition{}, nil
					}
					return snap.Markers, nil
				},
			},
			"mapState": &graphql.Field{
				Type:        renderStateType,
				Description: "Composed render-ready map state for a route",
				Args: graphql.FieldConfigArgument{
					"route_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					routeID := p.Args["route_id"].(string)
					return deps.Render.Compose(p.Context, routeID)
				},
			},
			"busEta": &graphql.Field{
				Type:        busETAType,
				Description: "Refreshing ETA table for one bus",
				Args: graphql.FieldConfigArgument{
					"bus_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					busID := p.Args["bus_id"].(string)
					return deps.ETA.Get(p.Context, busID)
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
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
