package gem

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bidplus-harvester/internal/models"
)

func TestRoute(t *testing.T) {
	cases := []struct {
		bidType, evalType int64
		want              models.RouteTag
	}{
		{0, 0, models.RouteDefault},
		{1, 3, models.RouteDefault},
		{5, 0, models.RouteDirect},
		{5, 2, models.RouteDirect},
		{2, 0, models.RouteRA},
		{2, -1, models.RouteRA},
		{2, 1, models.RouteRASchedules},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Route(tc.bidType, tc.evalType), "bid type %d eval %d", tc.bidType, tc.evalType)
	}
}

func TestLandingURL(t *testing.T) {
	base := "https://bidplus.gem.gov.in"
	assert.Equal(t, base+"/showbidDocument/101", LandingURL(base, models.BidRecord{ID: "101"}))
	assert.Equal(t, base+"/showdirectradocumentPdf/102", LandingURL(base, models.BidRecord{ID: "102", BidType: 5}))
	assert.Equal(t, base+"/showradocumentPdf/103", LandingURL(base, models.BidRecord{ID: "103", BidType: 2}))
	assert.Equal(t, base+"/list-ra-schedules/104", LandingURL(base, models.BidRecord{ID: "104", BidType: 2, EvalType: 1}))
}
