package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/walkies/internal/adapters/auth"
	"github.com/samirrijal/walkies/internal/core/domain"
	"github.com/samirrijal/walkies/internal/pkg/geospatial"
)

var errGraphQLUnauthenticated = errors.New("authentication required")

// buildSchema creates the read-only GraphQL schema over walk sessions.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	locationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "WalkLocation",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	walkType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Walk",
		Fields: graphql.Fields{
			"id":             &graphql.Field{Type: graphql.String},
			"owner_id":       &graphql.Field{Type: graphql.String},
			"sitter_id":      &graphql.Field{Type: graphql.String},
			"pet_ids":        &graphql.Field{Type: graphql.NewList(graphql.String)},
			"location":       &graphql.Field{Type: locationType},
			"duration":       &graphql.Field{Type: graphql.String},
			"duration_label": &graphql.Field{Type: graphql.String},
			"status":         &graphql.Field{Type: graphql.String},
			"created_at":     &graphql.Field{Type: graphql.String},
			"updated_at":     &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"activeWalk": &graphql.Field{
				Type:        walkType,
				Description: "The caller's active walk, if any",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					uid, ok := auth.UserID(p.Context)
					if !ok {
						return nil, errGraphQLUnauthenticated
					}
					s, err := deps.Walks.ActiveSession(p.Context, uid)
					if err != nil || s == nil {
						return nil, err
					}
					return walkToMap(s), nil
				},
			},
			"walkHistory": &graphql.Field{
				Type:        graphql.NewList(walkType),
				Description: "The caller's resolved walks, oldest first",
				Args: graphql.FieldConfigArgument{
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					uid, ok := auth.UserID(p.Context)
					if !ok {
						return nil, errGraphQLUnauthenticated
					}
					history, err := deps.Walks.History(p.Context, uid)
					if err != nil {
						return nil, err
					}
					if limit, _ := p.Args["limit"].(int); limit > 0 && len(history) > limit {
						history = history[len(history)-limit:]
					}
					out := make([]map[string]interface{}, 0, len(history))
					for i := range history {
						out = append(out, walkToMap(&history[i]))
					}
					return out, nil
				},
			},
			"walk": &graphql.Field{
				Type:        walkType,
				Description: "A walk the caller owns or walks",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					uid, ok := auth.UserID(p.Context)
					if !ok {
						return nil, errGraphQLUnauthenticated
					}
					id := p.Args["id"].(string)
					s, err := deps.Walks.GetSession(p.Context, id)
					if err != nil {
						return nil, err
					}
					if s.OwnerID != uid && s.SitterID != uid {
						return nil, &domain.NotFoundError{SessionID: id}
					}
					return walkToMap(s), nil
				},
			},
			"distance": &graphql.Field{
				Type:        graphql.Float,
				Description: "Great-circle distance in meters between two points",
				Args: graphql.FieldConfigArgument{
					"fromLat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"fromLng": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"toLat":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"toLng":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					from := domain.WalkLocation{Lat: p.Args["fromLat"].(float64), Lng: p.Args["fromLng"].(float64)}
					to := domain.WalkLocation{Lat: p.Args["toLat"].(float64), Lng: p.Args["toLng"].(float64)}
					if err := from.Validate(); err != nil {
						return nil, err
					}
					if err := to.Validate(); err != nil {
						return nil, err
					}
					return geospatial.DistanceMeters(from, to), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

func walkToMap(s *domain.WalkSession) map[string]interface{} {
	return map[string]interface{}{
		"id":             s.ID,
		"owner_id":       s.OwnerID,
		"sitter_id":      s.SitterID,
		"pet_ids":        s.PetIDs,
		"location":       map[string]interface{}{"lat": s.Location.Lat, "lng": s.Location.Lng},
		"duration":       s.Duration,
		"duration_label": domain.FormatDuration(s.Duration),
		"status":         string(s.Status),
		"created_at":     s.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":     s.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil || req.Query == "" {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.JSON(result)
	}
}
