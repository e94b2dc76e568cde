package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/example/club-scheduler/internal/club"
)

func inventoryDay(date string, classes ...club.SlotClass) club.InventoryDay {
	return club.InventoryDay{ID: date + "T00:00:00.000Z", Classes: classes}
}

func slotClass(id, date, clock string, limit, joined int, active bool) club.SlotClass {
	return club.SlotClass{
		ID:          id,
		ClassDate:   date + "T00:00:00.000Z",
		ClassTime:   clock,
		Limit:       limit,
		JoinedUsers: joined,
		Active:      active,
	}
}

func TestMatchInventorySimpleMatch(t *testing.T) {
	inv := []club.InventoryDay{
		inventoryDay("2026-09-07", slotClass("cls1", "2026-09-07", "9:00 am", 10, 9, true)),
	}
	cands := []Candidate{{Date: "2026-09-07", Weekday: time.Monday, Time: "9:00 am"}}

	matches, residual, dropped, err := MatchInventory(inv, "u1", cands)
	assert.NoError(t, err)
	assert.Empty(t, residual)
	assert.Empty(t, dropped)
	assert.Len(t, matches, 1)
	assert.Equal(t, "cls1", matches[0].ClassID)
	assert.Equal(t, "2026-09-07", matches[0].Date)
	assert.Equal(t, "9:00 am", matches[0].Time)
}

func TestMatchInventoryFullSlotStaysResidual(t *testing.T) {
	inv := []club.InventoryDay{
		inventoryDay("2026-09-07", slotClass("cls1", "2026-09-07", "9:00 am", 10, 10, true)),
	}
	cands := []Candidate{{Date: "2026-09-07", Time: "9:00 am"}}

	matches, residual, dropped, err := MatchInventory(inv, "u1", cands)
	assert.NoError(t, err)
	assert.Empty(t, matches)
	assert.Empty(t, dropped)
	assert.Equal(t, cands, residual)
}

func TestMatchInventoryInactiveSlot(t *testing.T) {
	inv := []club.InventoryDay{
		inventoryDay("2026-09-07", slotClass("cls1", "2026-09-07", "9:00 am", 10, 0, false)),
	}
	cands := []Candidate{{Date: "2026-09-07", Time: "9:00 am"}}

	matches, residual, _, err := MatchInventory(inv, "u1", cands)
	assert.NoError(t, err)
	assert.Empty(t, matches)
	assert.Len(t, residual, 1)
}

func TestMatchInventoryCompanionSeats(t *testing.T) {
	// two companions need three seats; two available is not enough
	inv := []club.InventoryDay{
		inventoryDay("2026-09-07", slotClass("cls1", "2026-09-07", "9:00 am", 10, 8, true)),
	}
	cands := []Candidate{{Date: "2026-09-07", Time: "9:00 am", Companions: []string{"a", "b"}}}

	matches, residual, _, err := MatchInventory(inv, "u1", cands)
	assert.NoError(t, err)
	assert.Empty(t, matches)
	assert.Len(t, residual, 1)

	// exactly three available seats is enough
	inv[0].Classes[0].JoinedUsers = 7
	matches, residual, _, err = MatchInventory(inv, "u1", cands)
	assert.NoError(t, err)
	assert.Len(t, matches, 1)
	assert.Empty(t, residual)
}

func TestMatchInventoryCancelledByUserDropsCandidate(t *testing.T) {
	sc := slotClass("cls1", "2026-09-07", "9:00 am", 10, 2, true)
	sc.AttendanceList = []club.Attendance{{UserID: "u1", Status: club.AttendanceCancelled}}
	inv := []club.InventoryDay{inventoryDay("2026-09-07", sc)}
	cands := []Candidate{{Date: "2026-09-07", Time: "9:00 am"}}

	matches, residual, dropped, err := MatchInventory(inv, "u1", cands)
	assert.NoError(t, err)
	assert.Empty(t, matches)
	assert.Empty(t, residual)
	assert.Equal(t, cands, dropped)

	// another user's cancellation does not block the candidate
	matches, residual, dropped, err = MatchInventory(inv, "u2", cands)
	assert.NoError(t, err)
	assert.Len(t, matches, 1)
	assert.Empty(t, residual)
	assert.Empty(t, dropped)
}

func TestMatchInventoryDateAbsent(t *testing.T) {
	inv := []club.InventoryDay{
		inventoryDay("2026-09-07", slotClass("cls1", "2026-09-07", "9:00 am", 10, 0, true)),
	}
	cands := []Candidate{{Date: "2026-09-08", Time: "9:00 am"}}

	matches, residual, _, err := MatchInventory(inv, "u1", cands)
	assert.NoError(t, err)
	assert.Empty(t, matches)
	assert.Equal(t, cands, residual)
}

func TestMatchInventoryUnsortedDayGroup(t *testing.T) {
	// the wanted time sits after a later one in the group; a full scan
	// must still find it
	inv := []club.InventoryDay{
		inventoryDay("2026-09-07",
			slotClass("cls2", "2026-09-07", "6:00 pm", 10, 0, true),
			slotClass("cls1", "2026-09-07", "9:00 am", 10, 0, true),
		),
	}
	cands := []Candidate{{Date: "2026-09-07", Time: "9:00 am"}}

	matches, _, _, err := MatchInventory(inv, "u1", cands)
	assert.NoError(t, err)
	assert.Len(t, matches, 1)
	assert.Equal(t, "cls1", matches[0].ClassID)
}

func TestMatchInventoryPreservesCandidateOrder(t *testing.T) {
	inv := []club.InventoryDay{
		inventoryDay("2026-09-07",
			slotClass("mon9", "2026-09-07", "9:00 am", 10, 0, true),
			slotClass("mon6", "2026-09-07", "6:00 pm", 10, 0, true),
		),
		inventoryDay("2026-09-08",
			slotClass("tue9", "2026-09-08", "9:00 am", 10, 0, true),
		),
	}
	cands := []Candidate{
		{Date: "2026-09-08", Time: "9:00 am"},
		{Date: "2026-09-07", Time: "6:00 pm"},
		{Date: "2026-09-07", Time: "9:00 am"},
	}

	matches, residual, _, err := MatchInventory(inv, "u1", cands)
	assert.NoError(t, err)
	assert.Empty(t, residual)
	assert.Equal(t, []string{"tue9", "mon6", "mon9"}, []string{matches[0].ClassID, matches[1].ClassID, matches[2].ClassID})
}

func TestMatchInventoryBadRemoteTime(t *testing.T) {
	inv := []club.InventoryDay{
		inventoryDay("2026-09-07", slotClass("cls1", "2026-09-07", "25:00", 10, 0, true)),
	}
	cands := []Candidate{{Date: "2026-09-07", Time: "9:00 am"}}

	_, _, _, err := MatchInventory(inv, "u1", cands)
	assert.Error(t, err)
}
