package domain

import "time"

// --- Model types ---

// Position is a player's on-pitch position as reported by the fantasy API.
type Position int

const (
	Goalkeeper Position = 1
	Defender   Position = 2
	Midfielder Position = 3
	Forward    Position = 4
)

func (p Position) String() string {
	switch p {
	case Goalkeeper:
		return "GKP"
	case Defender:
		return "DEF"
	case Midfielder:
		return "MID"
	case Forward:
		return "FWD"
	default:
		return "UNK"
	}
}

// Player is the subset of upstream player data the projection algorithms need.
// Everything else the API returns stays opaque to this layer.
type Player struct {
	ID          int      `json:"id"`
	WebName     string   `json:"web_name"`
	Position    Position `json:"element_type"`
	NowCost     float64  `json:"now_cost"`
	TotalPoints int      `json:"total_points"`
	Form        float64  `json:"form"`
	// ChanceOfPlaying is a fitness likelihood percentage; 100 means fully fit.
	ChanceOfPlaying int `json:"chance_of_playing_next_round"`
}

// Fixture is one upcoming match for a player, carrying the raw difficulty
// rating (1 = easiest opponent band, 5 = hardest).
type Fixture struct {
	Event      int `json:"event"`
	Difficulty int `json:"difficulty"`
}

// Pick is one slot in a manager's squad.
type Pick struct {
	PlayerID   int  `json:"element"`
	IsCaptain  bool `json:"is_captain"`
	Multiplier int  `json:"multiplier"`
}

// Squad is a manager's selection for a gameweek.
type Squad struct {
	ManagerID int    `json:"manager_id"`
	Picks     []Pick `json:"picks"`
}

// Captain returns the player ID of the squad's designated captain, or 0 if
// no pick carries the captain flag.
func (s Squad) Captain() int {
	for _, p := range s.Picks {
		if p.IsCaptain {
			return p.PlayerID
		}
	}
	return 0
}

// PlayerIDs returns the set of player IDs in the squad.
func (s Squad) PlayerIDs() map[int]struct{} {
	ids := make(map[int]struct{}, len(s.Picks))
	for _, p := range s.Picks {
		ids[p.PlayerID] = struct{}{}
	}
	return ids
}

// --- Live feed types ---

// TopicKind categorises a live-update topic.
type TopicKind string

const (
	TopicBattle   TopicKind = "battle"
	TopicGameweek TopicKind = "gameweek"
	TopicLeague   TopicKind = "league"
)

// MessageType identifies the shape of an inbound live-update frame.
type MessageType string

const (
	MsgBattleUpdate MessageType = "battle_update"
	MsgLiveScores   MessageType = "live_scores"
	MsgLeagueUpdate MessageType = "league_update"
	MsgPlayerEvent  MessageType = "player_event"
)

// Meta carries transport-level metadata delivered alongside a frame payload.
// Listeners may read it but never mutate the payload it accompanies.
type Meta struct {
	ReceivedAt time.Time
	FrameSize  int
}
