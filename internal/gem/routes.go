package gem

import "bidplus-harvester/internal/models"

// Bid type codes that select a non-default document endpoint.
const (
	bidTypeReverseAuction = 2
	bidTypeDirectRA       = 5
)

var routeSegments = map[models.RouteTag]string{
	models.RouteDefault:     "showbidDocument",
	models.RouteDirect:      "showdirectradocumentPdf",
	models.RouteRA:          "showradocumentPdf",
	models.RouteRASchedules: "list-ra-schedules",
}

// routeKey is the decision table input: bid type and whether the
// evaluation type code is positive.
type routeKey struct {
	bidType   int64
	scheduled bool
}

var routeTable = map[routeKey]models.RouteTag{
	{bidTypeDirectRA, false}:       models.RouteDirect,
	{bidTypeDirectRA, true}:        models.RouteDirect,
	{bidTypeReverseAuction, false}: models.RouteRA,
	{bidTypeReverseAuction, true}:  models.RouteRASchedules,
}

// Route picks the document endpoint for a bid from its type codes.
func Route(bidType, evalType int64) models.RouteTag {
	if tag, ok := routeTable[routeKey{bidType: bidType, scheduled: evalType > 0}]; ok {
		return tag
	}
	return models.RouteDefault
}

// Segment returns the path segment served for a route tag.
func Segment(tag models.RouteTag) string {
	if s, ok := routeSegments[tag]; ok {
		return s
	}
	return routeSegments[models.RouteDefault]
}

// LandingURL is the document landing page for a bid.
func LandingURL(baseURL string, bid models.BidRecord) string {
	return baseURL + "/" + Segment(Route(bid.BidType, bid.EvalType)) + "/" + bid.ID
}
