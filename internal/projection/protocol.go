package projection

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/poly4/fpl-analsyer-sub000/internal/domain"
)

// Operation names the compute request kinds.
type Operation string

const (
	OpExpectedPoints Operation = "EXPECTED_POINTS"
	OpTeamStats      Operation = "TEAM_STATS"
	OpDifferential   Operation = "DIFFERENTIAL"
	OpSimulateMatch  Operation = "SIMULATE_MATCH"
)

// Request is the compute message sent to the engine. Data carries the
// operation-specific payload; its shape is determined by Type.
type Request struct {
	ID   uuid.UUID       `json:"id"`
	Type Operation       `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ResponseSuccess = "SUCCESS"
	ResponseError   = "ERROR"
)

// Response is the engine's answer: exactly one per request, matched to it
// by ID. Either Data is set (SUCCESS) or Error is (ERROR), never both.
type Response struct {
	ID    uuid.UUID       `json:"id"`
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// --- EXPECTED_POINTS ---

// PlayerForecast pairs a player with the fixtures in the query window.
type PlayerForecast struct {
	Player   domain.Player    `json:"player"`
	Fixtures []domain.Fixture `json:"fixtures"`
}

type ExpectedPointsInput struct {
	Players []PlayerForecast `json:"players"`
}

type PlayerProjection struct {
	PlayerID       int     `json:"playerId"`
	WebName        string  `json:"webName"`
	ExpectedPoints float64 `json:"expectedPoints"`
}

type ExpectedPointsResult struct {
	Projections []PlayerProjection `json:"projections"`
}

// --- TEAM_STATS ---

type TeamStatsInput struct {
	TeamData   domain.Squad    `json:"teamData"`
	AllPlayers []domain.Player `json:"allPlayers"`
}

// Performer is a squad member classified by points-per-unit-value.
type Performer struct {
	PlayerID       int     `json:"playerId"`
	WebName        string  `json:"webName"`
	TotalPoints    int     `json:"totalPoints"`
	NowCost        float64 `json:"nowCost"`
	PointsPerValue float64 `json:"pointsPerValue"`
}

type TeamStatsResult struct {
	TotalValue      float64         `json:"totalValue"`
	TotalPoints     int             `json:"totalPoints"`
	AveragePoints   float64         `json:"averagePoints"`
	PositionCounts  map[string]int  `json:"positionCounts"`
	OverPerformers  []Performer     `json:"overPerformers"`
	UnderPerformers []Performer     `json:"underPerformers"`
	InjuryDoubts    []domain.Player `json:"injuryDoubts"`
}

// --- DIFFERENTIAL ---

type DifferentialInput struct {
	SquadA     domain.Squad    `json:"squadA"`
	SquadB     domain.Squad    `json:"squadB"`
	AllPlayers []domain.Player `json:"allPlayers"`
}

// CaptainComparison holds both captain records when the two squads have
// different captains.
type CaptainComparison struct {
	CaptainA domain.Player `json:"captainA"`
	CaptainB domain.Player `json:"captainB"`
}

type DifferentialResult struct {
	ExclusiveA []domain.Player `json:"exclusiveA"`
	ExclusiveB []domain.Player `json:"exclusiveB"`
	// CaptainDifferential is nil when both squads captain the same player.
	CaptainDifferential *CaptainComparison `json:"captainDifferential"`
}

// --- SIMULATE_MATCH ---

// SimPlayer carries the per-player expected points feeding the simulation.
type SimPlayer struct {
	PlayerID       int     `json:"playerId"`
	ExpectedPoints float64 `json:"expectedPoints"`
}

type SimSquad struct {
	Players   []SimPlayer `json:"players"`
	CaptainID int         `json:"captainId"`
}

type SimulateMatchInput struct {
	SquadA SimSquad `json:"squadA"`
	SquadB SimSquad `json:"squadB"`
	// Trials overrides the engine default when positive.
	Trials int `json:"trials,omitempty"`
}

type SimulateMatchResult struct {
	Trials int     `json:"trials"`
	WinA   float64 `json:"winA"`
	WinB   float64 `json:"winB"`
	Draw   float64 `json:"draw"`
}
