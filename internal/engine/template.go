package engine

// DraftOrder is the fixed action template every session follows: six
// alternating bans, then the standard snake pick order.
var DraftOrder = []TurnStep{
	// Bans
	{Team: TeamBlue, Type: ActionBan},
	{Team: TeamRed, Type: ActionBan},
	{Team: TeamBlue, Type: ActionBan},
	{Team: TeamRed, Type: ActionBan},
	{Team: TeamBlue, Type: ActionBan},
	{Team: TeamRed, Type: ActionBan},
	// Picks
	{Team: TeamBlue, Type: ActionPick},
	{Team: TeamRed, Type: ActionPick},
	{Team: TeamRed, Type: ActionPick},
	{Team: TeamBlue, Type: ActionPick},
	{Team: TeamBlue, Type: ActionPick},
	{Team: TeamRed, Type: ActionPick},
	{Team: TeamRed, Type: ActionPick},
	{Team: TeamBlue, Type: ActionPick},
	{Team: TeamBlue, Type: ActionPick},
	{Team: TeamRed, Type: ActionPick},
}

// FirstPickIndex is the phase at which a session moves from banning to picking.
const FirstPickIndex = 6
