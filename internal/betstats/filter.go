package betstats

// Criteria combina (AND) os predicados opcionais. Campo nil = sem restrição.
type Criteria struct {
	Interval  *Interval
	Sport     *string
	BetType   *string
	BetSource *string
}

// Match aplica todos os predicados a uma aposta (match exato, case-sensitive)
func (c Criteria) Match(b Bet) bool {
	if c.Interval != nil && !c.Interval.Contains(b.Date) {
		return false
	}
	if c.Sport != nil && b.Sport != *c.Sport {
		return false
	}
	if c.BetType != nil && b.BetType != *c.BetType {
		return false
	}
	if c.BetSource != nil && b.BetSource != *c.BetSource {
		return false
	}
	return true
}

// Filter devolve um novo slice com as apostas que satisfazem c, preservando a
// ordem de entrada. bets nunca é modificado.
func Filter(bets []Bet, c Criteria) []Bet {
	out := make([]Bet, 0, len(bets))
	for _, b := range bets {
		if c.Match(b) {
			out = append(out, b)
		}
	}
	return out
}
