package projection

import (
	"math/rand"
	"sort"

	"github.com/poly4/fpl-analsyer-sub000/internal/domain"
)

const (
	overPerformerThreshold  = 6.0
	underPerformerThreshold = 3.0
	fullFitness             = 100
)

// Params are the empirical modelling constants. Their values come from the
// upstream product, not from any structural requirement, so they are
// adjustable per engine instead of hard-coded invariants.
type Params struct {
	PositionMultipliers map[domain.Position]float64
	VarianceScale       float64
	DefaultTrials       int
}

// DefaultParams returns the production constants.
func DefaultParams() Params {
	return Params{
		PositionMultipliers: map[domain.Position]float64{
			domain.Goalkeeper: 0.5,
			domain.Defender:   0.7,
			domain.Midfielder: 1.0,
			domain.Forward:    1.2,
		},
		VarianceScale: 0.5,
		DefaultTrials: 1000,
	}
}

// expectedPoints projects per-fixture points for each player, averaged over
// the player's fixtures in the window. A player with no fixtures projects 0.
func expectedPoints(in ExpectedPointsInput, params Params) ExpectedPointsResult {
	projections := make([]PlayerProjection, 0, len(in.Players))
	for _, pf := range in.Players {
		projections = append(projections, PlayerProjection{
			PlayerID:       pf.Player.ID,
			WebName:        pf.Player.WebName,
			ExpectedPoints: projectPlayer(pf, params),
		})
	}
	return ExpectedPointsResult{Projections: projections}
}

func projectPlayer(pf PlayerForecast, params Params) float64 {
	if len(pf.Fixtures) == 0 {
		return 0
	}

	multiplier := params.PositionMultipliers[pf.Player.Position]
	total := 0.0
	for _, fixture := range pf.Fixtures {
		// Difficulty 5 is the hardest opponent band and yields the
		// smallest factor: (6-5)/5 = 0.2.
		difficultyFactor := float64(6-fixture.Difficulty) / 5
		total += (pf.Player.Form * difficultyFactor * multiplier * 2) + 2
	}
	return total / float64(len(pf.Fixtures))
}

// teamStats aggregates a squad: totals, per-position counts, performers by
// points-per-unit-value, and fitness doubts. An empty squad yields zeros,
// never a division error.
func teamStats(in TeamStatsInput) TeamStatsResult {
	byID := make(map[int]domain.Player, len(in.AllPlayers))
	for _, p := range in.AllPlayers {
		byID[p.ID] = p
	}

	result := TeamStatsResult{
		PositionCounts:  make(map[string]int),
		OverPerformers:  []Performer{},
		UnderPerformers: []Performer{},
		InjuryDoubts:    []domain.Player{},
	}

	matched := 0
	for _, pick := range in.TeamData.Picks {
		player, ok := byID[pick.PlayerID]
		if !ok {
			continue
		}
		matched++

		result.TotalValue += player.NowCost
		result.TotalPoints += player.TotalPoints
		result.PositionCounts[player.Position.String()]++

		if player.ChanceOfPlaying < fullFitness {
			result.InjuryDoubts = append(result.InjuryDoubts, player)
		}

		if player.NowCost <= 0 {
			continue
		}
		ppv := float64(player.TotalPoints) / player.NowCost
		entry := Performer{
			PlayerID:       player.ID,
			WebName:        player.WebName,
			TotalPoints:    player.TotalPoints,
			NowCost:        player.NowCost,
			PointsPerValue: ppv,
		}
		switch {
		case ppv > overPerformerThreshold:
			result.OverPerformers = append(result.OverPerformers, entry)
		case ppv < underPerformerThreshold:
			result.UnderPerformers = append(result.UnderPerformers, entry)
		}
	}

	if matched > 0 {
		result.AveragePoints = float64(result.TotalPoints) / float64(matched)
	}

	sort.Slice(result.OverPerformers, func(i, j int) bool {
		return result.OverPerformers[i].PointsPerValue > result.OverPerformers[j].PointsPerValue
	})
	sort.Slice(result.UnderPerformers, func(i, j int) bool {
		return result.UnderPerformers[i].PointsPerValue < result.UnderPerformers[j].PointsPerValue
	})

	return result
}

// differential computes each squad's exclusive players and compares the two
// designated captains. Identical player sets produce empty exclusives; a
// shared captain produces a nil comparison.
func differential(in DifferentialInput) DifferentialResult {
	byID := make(map[int]domain.Player, len(in.AllPlayers))
	for _, p := range in.AllPlayers {
		byID[p.ID] = p
	}

	idsA := in.SquadA.PlayerIDs()
	idsB := in.SquadB.PlayerIDs()

	result := DifferentialResult{
		ExclusiveA: exclusivePlayers(in.SquadA, idsB, byID),
		ExclusiveB: exclusivePlayers(in.SquadB, idsA, byID),
	}

	captainA, captainB := in.SquadA.Captain(), in.SquadB.Captain()
	if captainA != captainB {
		result.CaptainDifferential = &CaptainComparison{
			CaptainA: byID[captainA],
			CaptainB: byID[captainB],
		}
	}
	return result
}

func exclusivePlayers(squad domain.Squad, other map[int]struct{}, byID map[int]domain.Player) []domain.Player {
	exclusive := []domain.Player{}
	for _, pick := range squad.Picks {
		if _, shared := other[pick.PlayerID]; shared {
			continue
		}
		if player, ok := byID[pick.PlayerID]; ok {
			exclusive = append(exclusive, player)
		} else {
			exclusive = append(exclusive, domain.Player{ID: pick.PlayerID})
		}
	}
	return exclusive
}

// simulateMatch runs trials independent samples of both squads' totals and
// tallies strict wins per side and exact-equality draws. Fractions are
// reported as probabilities in [0,1] even when an outcome never occurred.
func simulateMatch(in SimulateMatchInput, params Params, rng *rand.Rand) SimulateMatchResult {
	trials := in.Trials
	if trials <= 0 {
		trials = params.DefaultTrials
	}

	var winsA, winsB, draws int
	for t := 0; t < trials; t++ {
		totalA := sampleSquad(in.SquadA, params.VarianceScale, rng)
		totalB := sampleSquad(in.SquadB, params.VarianceScale, rng)
		switch {
		case totalA > totalB:
			winsA++
		case totalB > totalA:
			winsB++
		default:
			draws++
		}
	}

	n := float64(trials)
	return SimulateMatchResult{
		Trials: trials,
		WinA:   float64(winsA) / n,
		WinB:   float64(winsB) / n,
		Draw:   float64(draws) / n,
	}
}

func sampleSquad(squad SimSquad, varianceScale float64, rng *rand.Rand) float64 {
	total := 0.0
	for _, p := range squad.Players {
		sample := p.ExpectedPoints + (rng.Float64()-0.5)*p.ExpectedPoints*varianceScale*2
		if sample < 0 {
			sample = 0
		}
		if p.PlayerID == squad.CaptainID {
			sample *= 2
		}
		total += sample
	}
	return total
}
