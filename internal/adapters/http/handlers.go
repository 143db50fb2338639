package http

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/walkies/internal/core/domain"
	"github.com/samirrijal/walkies/internal/core/ports"
	"github.com/samirrijal/walkies/internal/pkg/geospatial"
)

type createWalkRequest struct {
	PetIDs   []string            `json:"pet_ids"`
	Duration string              `json:"duration"`
	Location domain.WalkLocation `json:"location"`
}

type roleRequest struct {
	Role string `json:"role"`
}

type pushTokenRequest struct {
	Token string `json:"token"`
}

// walkResponse adds display fields to a session.
type walkResponse struct {
	*domain.WalkSession
	DurationLabel string `json:"duration_label"`
}

func toWalkResponse(s *domain.WalkSession) *walkResponse {
	if s == nil {
		return nil
	}
	return &walkResponse{WalkSession: s, DurationLabel: domain.FormatDuration(s.Duration)}
}

func toWalkResponses(ss []domain.WalkSession) []*walkResponse {
	out := make([]*walkResponse, 0, len(ss))
	for i := range ss {
		out = append(out, toWalkResponse(&ss[i]))
	}
	return out
}

// CreateWalkHandler starts a new walk request for the caller.
func CreateWalkHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createWalkRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		id, err := deps.Walks.CreateSession(c.UserContext(), callerID(c), req.PetIDs, req.Duration, req.Location)
		if err != nil {
			return writeDomainError(c, err)
		}

		c.Location("/v1/walks/" + id)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
	}
}

// ActiveWalkHandler returns the caller's active walk. The session field is
// null when there is none.
func ActiveWalkHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := deps.Walks.ActiveSession(c.UserContext(), callerID(c))
		if err != nil {
			return writeDomainError(c, err)
		}
		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.JSON(fiber.Map{"session": toWalkResponse(session)})
	}
}

// WalkHistoryHandler returns the caller's resolved walks, oldest first.
func WalkHistoryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		history, err := deps.Walks.History(c.UserContext(), callerID(c))
		if err != nil {
			return writeDomainError(c, err)
		}

		offset, limit := pageParams(c, 50, 200)
		window, pg := page(history, offset, limit)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: toWalkResponses(window), Pagination: pg})
	}
}

// OpenWalksHandler lists walks waiting for a sitter near a point.
func OpenWalksHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		near, ok := queryLocation(c, "lat", "lng")
		if !ok {
			return errBadRequest(c, "lat and lng must be numbers")
		}
		radius := 2000.0
		if raw := c.Query("radius"); raw != "" {
			var err error
			if radius, err = strconv.ParseFloat(raw, 64); err != nil {
				return errBadRequest(c, "radius must be a number")
			}
		}
		if !(radius > 0 && radius <= 20000) {
			return errBadRequest(c, "radius must be between 1 and 20000 meters")
		}

		sessions, err := deps.Walks.ListOpenNearby(c.UserContext(), near, radius, c.QueryInt("limit", 20))
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(toWalkResponses(sessions))
	}
}

// GetWalkHandler returns a walk visible to the caller: their own, one they
// are walking, or one still looking for a sitter.
func GetWalkHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := visibleSession(c, deps, func(s *domain.WalkSession, caller string) bool {
			return s.OwnerID == caller || s.SitterID == caller || s.Status == domain.StatusMatching
		})
		if err != nil || session == nil {
			return err
		}
		return c.JSON(toWalkResponse(session))
	}
}

// transitionFunc is a lifecycle operation that needs only the session id.
type transitionFunc func(ctx context.Context, id string) (*domain.WalkSession, error)

// OwnerTransitionHandler applies op to one of the caller's own walks.
func OwnerTransitionHandler(deps *Dependencies, op transitionFunc) fiber.Handler {
	return transitionHandler(deps, op, func(s *domain.WalkSession, caller string) bool {
		return s.OwnerID == caller
	})
}

// ParticipantTransitionHandler applies op to a walk the caller owns or walks.
func ParticipantTransitionHandler(deps *Dependencies, op transitionFunc) fiber.Handler {
	return transitionHandler(deps, op, func(s *domain.WalkSession, caller string) bool {
		return s.OwnerID == caller || (s.SitterID != "" && s.SitterID == caller)
	})
}

func transitionHandler(deps *Dependencies, op transitionFunc, visible func(*domain.WalkSession, string) bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := visibleSession(c, deps, visible)
		if err != nil || session == nil {
			return err
		}
		updated, err := op(c.UserContext(), session.ID)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(toWalkResponse(updated))
	}
}

// AcceptWalkHandler assigns the calling sitter to an open walk.
func AcceptWalkHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		updated, err := deps.Walks.AcceptSession(c.UserContext(), c.Params("id"), callerID(c))
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(toWalkResponse(updated))
	}
}

// ReportLocationHandler takes a position sample from the walk's sitter.
// With a location queue configured the sample is accepted for asynchronous
// processing, otherwise it is applied immediately.
func ReportLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var loc domain.WalkLocation
		if err := c.BodyParser(&loc); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if err := loc.Validate(); err != nil {
			return writeDomainError(c, err)
		}

		session, err := visibleSession(c, deps, isSitterOf)
		if err != nil || session == nil {
			return err
		}

		if deps.Locations != nil {
			report := &ports.LocationReport{SessionID: session.ID, SitterID: callerID(c), Location: loc}
			if err := deps.Locations.PublishLocation(c.UserContext(), report); err != nil {
				return writeDomainError(c, err)
			}
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"session_id": session.ID, "queued": true})
		}

		outcome, err := deps.Walks.ReportLocation(c.UserContext(), session.ID, loc)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(outcome)
	}
}

// WalkRouteHandler returns the walking route from the sitter's position to
// the walk's meeting point.
func WalkRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, ok := queryLocation(c, "lat", "lng")
		if !ok {
			return errBadRequest(c, "lat and lng must be numbers")
		}
		session, err := visibleSession(c, deps, isSitterOf)
		if err != nil || session == nil {
			return err
		}

		route, err := deps.Routes.RouteToSession(c.UserContext(), session.ID, from)
		if err != nil {
			return writeDomainError(c, err)
		}
		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.JSON(route)
	}
}

// RouteHandler returns a walking route between two arbitrary points.
func RouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, ok1 := queryLocation(c, "from_lat", "from_lng")
		to, ok2 := queryLocation(c, "to_lat", "to_lng")
		if !ok1 || !ok2 {
			return errBadRequest(c, "from_lat, from_lng, to_lat and to_lng must be numbers")
		}
		route, err := deps.Routes.Route(c.UserContext(), from, to)
		if err != nil {
			return writeDomainError(c, err)
		}
		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.JSON(route)
	}
}

// DistanceHandler returns the great-circle distance between two points and
// whether it is inside the walk completion radius.
func DistanceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, ok1 := queryLocation(c, "from_lat", "from_lng")
		to, ok2 := queryLocation(c, "to_lat", "to_lng")
		if !ok1 || !ok2 {
			return errBadRequest(c, "from_lat, from_lng, to_lat and to_lng must be numbers")
		}
		for _, l := range []domain.WalkLocation{from, to} {
			if err := l.Validate(); err != nil {
				return writeDomainError(c, err)
			}
		}

		radius := deps.Walks.CompletionRadius()
		meters := geospatial.DistanceMeters(from, to)
		return c.JSON(fiber.Map{
			"meters":        meters,
			"kilometers":    meters / 1000,
			"radius_meters": radius,
			"within_range":  meters <= radius,
		})
	}
}

// MeHandler returns the caller's id and selected role.
func MeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, err := deps.Profiles.RoleOf(c.UserContext(), callerID(c))
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(fiber.Map{"user_id": callerID(c), "role": role})
	}
}

// SelectRoleHandler records the caller's onboarding role.
func SelectRoleHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req roleRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if err := deps.Profiles.SelectRole(c.UserContext(), callerID(c), req.Role); err != nil {
			return writeDomainError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// PushTokenHandler stores a freshly issued push token on the caller's profile.
func PushTokenHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req pushTokenRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if err := deps.Profiles.SyncPushToken(c.UserContext(), callerID(c), req.Token); err != nil {
			return writeDomainError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// visibleSession loads the :id session and answers 404 when the caller may not
// see it. A nil session with nil error means the response is already written.
func visibleSession(c *fiber.Ctx, deps *Dependencies, visible func(*domain.WalkSession, string) bool) (*domain.WalkSession, error) {
	id := c.Params("id")
	session, err := deps.Walks.GetSession(c.UserContext(), id)
	if err != nil {
		return nil, writeDomainError(c, err)
	}
	if !visible(session, callerID(c)) {
		return nil, errNotFound(c, (&domain.NotFoundError{SessionID: id}).Error())
	}
	return session, nil
}

func isSitterOf(s *domain.WalkSession, caller string) bool {
	return s.SitterID != "" && s.SitterID == caller
}

// queryLocation reads a coordinate pair from the query string. It reports
// false when either value is missing or not a number.
func queryLocation(c *fiber.Ctx, latKey, lngKey string) (domain.WalkLocation, bool) {
	lat, err := strconv.ParseFloat(c.Query(latKey), 64)
	if err != nil {
		return domain.WalkLocation{}, false
	}
	lng, err := strconv.ParseFloat(c.Query(lngKey), 64)
	if err != nil {
		return domain.WalkLocation{}, false
	}
	return domain.WalkLocation{Lat: lat, Lng: lng}, true
}
