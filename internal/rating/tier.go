package rating

type Tier string

const (
	TierUnranked    Tier = "unranked"
	TierIron        Tier = "iron"
	TierBronze      Tier = "bronze"
	TierSilver      Tier = "silver"
	TierGold        Tier = "gold"
	TierPlatinum    Tier = "platinum"
	TierEmerald     Tier = "emerald"
	TierDiamond     Tier = "diamond"
	TierMaster      Tier = "master"
	TierGrandmaster Tier = "grandmaster"
	TierChallenger  Tier = "challenger"
)

// TierFor maps a rating to its display band. Players still in placement have
// no public tier.
func TierFor(rating int, placed bool) Tier {
	if !placed {
		return TierUnranked
	}
	switch {
	case rating < 800:
		return TierIron
	case rating < 1000:
		return TierBronze
	case rating < 1200:
		return TierSilver
	case rating < 1400:
		return TierGold
	case rating < 1600:
		return TierPlatinum
	case rating < 1800:
		return TierEmerald
	case rating < 2100:
		return TierDiamond
	case rating < 2400:
		return TierMaster
	case rating < 2800:
		return TierGrandmaster
	default:
		return TierChallenger
	}
}

// seedTable maps externally supplied rank tiers to a base rating for players
// who have never played a rated match here.
var seedTable = map[string]int{
	"iron":        700,
	"bronze":      900,
	"silver":      1100,
	"gold":        1300,
	"platinum":    1500,
	"emerald":     1700,
	"diamond":     1950,
	"master":      2250,
	"grandmaster": 2600,
	"challenger":  2900,
}

// DefaultSeed is used when the external rank is unknown or missing.
const DefaultSeed = 1000

// SeedRating converts an external rank tier into an initial rating.
func SeedRating(externalTier string) int {
	if seed, ok := seedTable[externalTier]; ok {
		return seed
	}
	return DefaultSeed
}
