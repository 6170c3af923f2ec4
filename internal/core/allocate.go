package core

// Allocate splits totalCost across players in proportion to the hours each
// one played. Shares come back in input order with full float precision;
// rounding happens when the session is persisted (see NewSession).
//
// An empty result means "not ready yet": it is returned when totalCost <= 0
// or when the players' hours sum to 0 or less.
//
// Portions and amounts are computed independently per player, so their sums
// equal 1 and totalCost only up to floating-point rounding, which stays within
// a relative error of about 1e-9 for realistic session sizes.
func Allocate(totalCost float64, players []PlayerInput) []Share {
	totalPlayerHours := TotalPlayerHours(players)
	if totalPlayerHours <= 0 || totalCost <= 0 {
		return nil
	}

	shares := make([]Share, len(players))
	for i, p := range players {
		portion := p.Hours / totalPlayerHours
		shares[i] = Share{
			ID:      p.ID,
			Name:    p.DisplayName(),
			Hours:   p.Hours,
			Portion: portion,
			Amount:  portion * totalCost,
		}
	}
	return shares
}

// TotalPlayerHours sums the hours of all players.
func TotalPlayerHours(players []PlayerInput) float64 {
	var total float64
	for _, p := range players {
		total += p.Hours
	}
	return total
}
