package queue

import (
	"github.com/elliotchance/pie/v2"

	"github.com/riftarena/rift-backend/internal/engine"
	"github.com/riftarena/rift-backend/internal/store"
)

// Formation is a successful pairing: two rosters of five, one entry per role,
// in canonical role order.
type Formation struct {
	Blue []store.QueueEntry
	Red  []store.QueueEntry
}

func (f Formation) PlayerIDs() []string {
	ids := make([]string, 0, len(f.Blue)+len(f.Red))
	for _, e := range f.Blue {
		ids = append(ids, e.PlayerID)
	}
	for _, e := range f.Red {
		ids = append(ids, e.PlayerID)
	}
	return ids
}

// FindMatch attempts to form a match from the waiting pool. Every role needs
// at least two entries; per role the two lowest-rated entries are taken, with
// the earlier join winning rating ties. The longest-waiting low-rated pairs
// go first; this is not an MMR-closest global search.
//
// Teams are balanced greedily: roles are processed in canonical order and the
// higher-rated of each pair joins whichever team has the lower running sum
// (blue on ties). The worst-case team gap is bounded by the largest single
// per-role rating gap.
func FindMatch(entries []store.QueueEntry) (Formation, bool) {
	byRole := make(map[engine.Role][]store.QueueEntry, len(engine.RoleOrder))
	for _, e := range entries {
		byRole[e.Role] = append(byRole[e.Role], e)
	}
	for _, role := range engine.RoleOrder {
		if len(byRole[role]) < 2 {
			return Formation{}, false
		}
	}

	var f Formation
	blueSum, redSum := 0, 0
	for _, role := range engine.RoleOrder {
		pool := pie.SortUsing(byRole[role], func(a, b store.QueueEntry) bool {
			if a.Rating != b.Rating {
				return a.Rating < b.Rating
			}
			return a.JoinedAt.Before(b.JoinedAt)
		})
		low, high := pool[0], pool[1]

		if blueSum <= redSum {
			f.Blue = append(f.Blue, high)
			f.Red = append(f.Red, low)
		} else {
			f.Blue = append(f.Blue, low)
			f.Red = append(f.Red, high)
		}
		blueSum += f.Blue[len(f.Blue)-1].Rating
		redSum += f.Red[len(f.Red)-1].Rating
	}
	return f, true
}
