package booking

import (
	"fmt"

	"github.com/example/club-scheduler/internal/club"
)

// MatchInventory reconciles outstanding candidates against one fetch of
// the live inventory. It returns matches in candidate order, the residual
// candidates that stay outstanding for later retry, and candidates
// dropped because the user previously cancelled the matching class
// (a self-cancellation is treated as handled for the rest of the horizon,
// never rebooked automatically).
//
// Each day group is scanned in full; the backend usually sorts classes by
// time but that is not relied upon.
func MatchInventory(inv []club.InventoryDay, userID string, cands []Candidate) (matches []Match, residual, dropped []Candidate, err error) {
	byDate := make(map[string]club.InventoryDay, len(inv))
	for _, day := range inv {
		d, derr := parseRemoteDate(day.ID)
		if derr != nil {
			return nil, nil, nil, fmt.Errorf("inventory day id: %w", derr)
		}
		byDate[d.Format(DateLayout)] = day
	}

	for _, cand := range cands {
		day, ok := byDate[cand.Date]
		if !ok {
			residual = append(residual, cand)
			continue
		}
		want, perr := ParseClockTime(cand.Time)
		if perr != nil {
			return nil, nil, nil, perr
		}

		var found *Match
		cancelled := false
		for _, sc := range day.Classes {
			got, perr := ParseClockTime(sc.ClassTime)
			if perr != nil {
				return nil, nil, nil, fmt.Errorf("inventory class %s: %w", sc.ID, perr)
			}
			if got != want {
				continue
			}
			if sc.CancelledBy(userID) {
				cancelled = true
				continue
			}
			if !sc.Active || sc.Available() < cand.Seats() {
				continue
			}
			d, derr := parseRemoteDate(sc.ClassDate)
			if derr != nil {
				return nil, nil, nil, fmt.Errorf("inventory class %s: %w", sc.ID, derr)
			}
			found = &Match{
				Candidate: cand,
				ClassID:   sc.ID,
				Date:      d.Format(DateLayout),
				Time:      sc.ClassTime,
			}
			break
		}

		switch {
		case found != nil:
			matches = append(matches, *found)
		case cancelled:
			dropped = append(dropped, cand)
		default:
			residual = append(residual, cand)
		}
	}
	return matches, residual, dropped, nil
}
