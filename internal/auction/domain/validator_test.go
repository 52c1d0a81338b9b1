package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testAuction(now time.Time) *Auction {
	return &Auction{
		ID:            uuid.New(),
		ProductID:     uuid.New(),
		StoreID:       uuid.New(),
		StartPrice:    dec("100"),
		MinIncrement:  dec("10"),
		StartAt:       now.Add(-time.Hour),
		EndAt:         now.Add(time.Hour),
		AutoExtend:    false,
		ExtendMinutes: 5,
		Status:        StatusRunning,
	}
}

func TestValidate_FirstBidFloor(t *testing.T) {
	now := time.Now().UTC()
	a := testAuction(now)
	bidder := uuid.New()

	d := Validate(a, bidder, dec("99"), now, false)
	check.False(t, d.Accepted)
	check.Equal(t, ReasonBidTooLow, d.Reason)
	check.True(t, d.Minimum.Equal(dec("100")))

	d = Validate(a, bidder, dec("100"), now, false)
	check.True(t, d.Accepted)
	check.True(t, d.NewCurrent.Equal(dec("100")))
}

func TestValidate_FirstBidFloorIsIncrementWhenStartPriceLower(t *testing.T) {
	now := time.Now().UTC()
	a := testAuction(now)
	a.StartPrice = dec("5")

	d := Validate(a, uuid.New(), dec("7"), now, false)
	check.False(t, d.Accepted)
	check.Equal(t, ReasonBidTooLow, d.Reason)
	check.True(t, d.Minimum.Equal(dec("10")))
}

func TestValidate_IncrementAboveCurrent(t *testing.T) {
	now := time.Now().UTC()
	a := testAuction(now)
	current := dec("150")
	leader := uuid.New()
	a.CurrentBid = &current
	a.CurrentBidder = &leader

	d := Validate(a, uuid.New(), dec("155"), now, false)
	check.False(t, d.Accepted)
	check.Equal(t, ReasonBidTooLow, d.Reason)
	check.True(t, d.Minimum.Equal(dec("160")))

	d = Validate(a, uuid.New(), dec("160"), now, false)
	check.True(t, d.Accepted)
}

func TestValidate_StatusRules(t *testing.T) {
	now := time.Now().UTC()
	bidder := uuid.New()

	for _, status := range []AuctionStatus{StatusScheduled, StatusClosed, StatusArchived} {
		a := testAuction(now)
		a.Status = status
		d := Validate(a, bidder, dec("200"), now, false)
		check.False(t, d.Accepted)
		check.Equal(t, ReasonAuctionNotActive, d.Reason)
	}

	a := testAuction(now)
	a.Status = StatusEndingSoon
	d := Validate(a, bidder, dec("200"), now, false)
	check.True(t, d.Accepted)
}

func TestValidate_PastEndAt(t *testing.T) {
	now := time.Now().UTC()
	a := testAuction(now)
	a.EndAt = now.Add(-time.Second)

	d := Validate(a, uuid.New(), dec("200"), now, false)
	check.False(t, d.Accepted)
	check.Equal(t, ReasonAuctionEnded, d.Reason)
}

func TestValidate_SelfOutbid(t *testing.T) {
	now := time.Now().UTC()
	a := testAuction(now)
	current := dec("150")
	leader := uuid.New()
	a.CurrentBid = &current
	a.CurrentBidder = &leader

	d := Validate(a, leader, dec("200"), now, false)
	check.False(t, d.Accepted)
	check.Equal(t, ReasonAlreadyHighBidder, d.Reason)

	// policy knob relaxes the rule
	d = Validate(a, leader, dec("200"), now, true)
	check.True(t, d.Accepted)
}

func TestValidate_ReserveBelowStillAccepted(t *testing.T) {
	now := time.Now().UTC()
	a := testAuction(now)
	reserve := dec("1000")
	a.ReservePrice = &reserve

	d := Validate(a, uuid.New(), dec("800"), now, false)
	check.True(t, d.Accepted)
	check.False(t, d.ReserveMet)

	d = Validate(a, uuid.New(), dec("1000"), now, false)
	check.True(t, d.Accepted)
	check.True(t, d.ReserveMet)
}

func TestValidate_AutoExtend(t *testing.T) {
	now := time.Now().UTC()
	a := testAuction(now)
	a.AutoExtend = true
	a.ExtendMinutes = 5
	a.EndAt = now.Add(30 * time.Second)

	d := Validate(a, uuid.New(), dec("200"), now, false)
	check.True(t, d.Accepted)
	check.True(t, d.Extended)
	check.Equal(t, now.Add(5*time.Minute), d.NewEndAt)
}

func TestValidate_NoExtendOutsideWindow(t *testing.T) {
	now := time.Now().UTC()
	a := testAuction(now)
	a.AutoExtend = true
	a.ExtendMinutes = 5
	a.EndAt = now.Add(20 * time.Minute)

	d := Validate(a, uuid.New(), dec("200"), now, false)
	check.True(t, d.Accepted)
	check.False(t, d.Extended)
}

func TestTimeDerivedStatus(t *testing.T) {
	now := time.Now().UTC()
	window := 10 * time.Minute
	a := testAuction(now)

	a.StartAt = now.Add(time.Hour)
	a.EndAt = now.Add(2 * time.Hour)
	check.Equal(t, StatusScheduled, a.TimeDerivedStatus(now, window))

	a.StartAt = now.Add(-time.Hour)
	check.Equal(t, StatusRunning, a.TimeDerivedStatus(now, window))

	a.EndAt = now.Add(5 * time.Minute)
	check.Equal(t, StatusEndingSoon, a.TimeDerivedStatus(now, window))

	a.EndAt = now
	check.Equal(t, StatusClosed, a.TimeDerivedStatus(now, window))

	// terminal states are sticky
	a.Status = StatusClosed
	a.EndAt = now.Add(time.Hour)
	check.Equal(t, StatusClosed, a.TimeDerivedStatus(now, window))
}
