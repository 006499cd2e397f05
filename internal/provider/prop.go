package provider

// PropType is a statistical category a sportsbook offers a line on.
// Combined props are the sum of their component stats.
type PropType string

const (
	PropPoints          PropType = "points"
	PropRebounds        PropType = "rebounds"
	PropAssists         PropType = "assists"
	PropSteals          PropType = "steals"
	PropBlocks          PropType = "blocks"
	PropThrees          PropType = "threes"
	PropTurnovers       PropType = "turnovers"
	PropPointsRebounds  PropType = "points+rebounds"
	PropPointsAssists   PropType = "points+assists"
	PropReboundsAssists PropType = "rebounds+assists"
	PropPRA             PropType = "points+rebounds+assists"
)

// Components returns the single-stat props a combined prop sums over.
// Single props return themselves.
func (p PropType) Components() []PropType {
	switch p {
	case PropPointsRebounds:
		return []PropType{PropPoints, PropRebounds}
	case PropPointsAssists:
		return []PropType{PropPoints, PropAssists}
	case PropReboundsAssists:
		return []PropType{PropRebounds, PropAssists}
	case PropPRA:
		return []PropType{PropPoints, PropRebounds, PropAssists}
	default:
		return []PropType{p}
	}
}

// IsCombined reports whether p sums two or more single stats.
func (p PropType) IsCombined() bool {
	return len(p.Components()) > 1
}

// Value extracts the prop's value from a canonical game row. Combined
// props sum their components. Unknown props read as 0.
func (p PropType) Value(g Game) float64 {
	switch p {
	case PropPoints:
		return g.Points
	case PropRebounds:
		return g.Rebounds
	case PropAssists:
		return g.Assists
	case PropSteals:
		return g.Steals
	case PropBlocks:
		return g.Blocks
	case PropThrees:
		return g.ThreesMade
	case PropTurnovers:
		return g.Turnovers
	default:
		if !p.IsCombined() {
			return 0
		}
		var sum float64
		for _, c := range p.Components() {
			sum += c.Value(g)
		}
		return sum
	}
}
