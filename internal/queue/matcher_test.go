package queue

import (
	"fmt"
	"testing"
	"time"

	"github.com/riftarena/rift-backend/internal/engine"
	"github.com/riftarena/rift-backend/internal/store"
)

var j0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func entry(id string, role engine.Role, rating int, joinedSec int) store.QueueEntry {
	return store.QueueEntry{
		PlayerID: id,
		Name:     id,
		Role:     role,
		Rating:   rating,
		Region:   "euw",
		JoinedAt: j0.Add(time.Duration(joinedSec) * time.Second),
	}
}

// fullPool returns two entries per role, rated base and base+gap.
func fullPool(base, gap int) []store.QueueEntry {
	var entries []store.QueueEntry
	for i, role := range engine.RoleOrder {
		entries = append(entries,
			entry(fmt.Sprintf("low-%s", role), role, base, i),
			entry(fmt.Sprintf("high-%s", role), role, base+gap, i+10),
		)
	}
	return entries
}

func TestFindMatch_RequiresTwoPerRole(t *testing.T) {
	entries := fullPool(1000, 100)

	// Any 9-player subset is short one role.
	for drop := range entries {
		partial := append([]store.QueueEntry{}, entries[:drop]...)
		partial = append(partial, entries[drop+1:]...)
		if _, ok := FindMatch(partial); ok {
			t.Fatalf("match formed with a role short of players (dropped %s)", entries[drop].PlayerID)
		}
	}

	if _, ok := FindMatch(entries); !ok {
		t.Fatalf("expected a match from a full pool")
	}
}

func TestFindMatch_TakesTwoLowestPerRole(t *testing.T) {
	entries := fullPool(1000, 100)
	// A third, much higher-rated top laner must be skipped.
	entries = append(entries, entry("smurf-top", engine.RoleTop, 2500, 0))

	f, ok := FindMatch(entries)
	if !ok {
		t.Fatalf("expected match")
	}
	for _, id := range f.PlayerIDs() {
		if id == "smurf-top" {
			t.Fatalf("highest-rated entry should be skipped while two lower-rated wait")
		}
	}
}

func TestFindMatch_RatingTieBrokenByJoinTime(t *testing.T) {
	entries := fullPool(1000, 100)
	// Three equal-rated mids; the two earliest joins win.
	entries = append(entries,
		entry("mid-early", engine.RoleMid, 900, 1),
		entry("mid-late", engine.RoleMid, 900, 99),
	)
	entries[4] = entry("mid-mid", engine.RoleMid, 900, 50) // replaces low-mid

	f, ok := FindMatch(entries)
	if !ok {
		t.Fatalf("expected match")
	}
	got := map[string]bool{}
	for _, id := range f.PlayerIDs() {
		got[id] = true
	}
	if !got["mid-early"] || !got["mid-mid"] {
		t.Fatalf("earliest equal-rated joins should be matched, got %v", f.PlayerIDs())
	}
	if got["mid-late"] {
		t.Fatalf("latest equal-rated join should keep waiting")
	}
}

func TestFindMatch_EachPlayerExactlyOnce(t *testing.T) {
	f, ok := FindMatch(fullPool(1000, 50))
	if !ok {
		t.Fatalf("expected match")
	}
	ids := f.PlayerIDs()
	if len(ids) != 10 || len(f.Blue) != 5 || len(f.Red) != 5 {
		t.Fatalf("want 5v5, got %d blue / %d red", len(f.Blue), len(f.Red))
	}
	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("player %s matched twice", id)
		}
		seen[id] = true
	}
}

func TestFindMatch_GreedyBalanceBoundsTeamGap(t *testing.T) {
	// Uneven pairs: the per-role gaps differ, the greedy split must keep the
	// team gap within the largest single per-role gap.
	var entries []store.QueueEntry
	gaps := []int{40, 200, 80, 10, 120}
	for i, role := range engine.RoleOrder {
		entries = append(entries,
			entry(fmt.Sprintf("a-%s", role), role, 1000, i),
			entry(fmt.Sprintf("b-%s", role), role, 1000+gaps[i], i),
		)
	}

	f, ok := FindMatch(entries)
	if !ok {
		t.Fatalf("expected match")
	}

	sum := func(team []store.QueueEntry) int {
		total := 0
		for _, e := range team {
			total += e.Rating
		}
		return total
	}
	gap := sum(f.Blue) - sum(f.Red)
	if gap < 0 {
		gap = -gap
	}
	if gap > 200 {
		t.Fatalf("team rating gap %d exceeds the largest per-role gap", gap)
	}

	// Roster order follows the canonical role order.
	for i, role := range engine.RoleOrder {
		if f.Blue[i].Role != role || f.Red[i].Role != role {
			t.Fatalf("slot %d: want role %s, got %s/%s", i, role, f.Blue[i].Role, f.Red[i].Role)
		}
	}
}
