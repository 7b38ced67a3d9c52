package betstats

// Catalog lista os valores distintos de cada campo categórico
type Catalog struct {
	Sports     []string `json:"sports"`
	BetTypes   []string `json:"betTypes"`
	BetSources []string `json:"betSources"`
}

func DistinctSports(bets []Bet) []string {
	return distinct(bets, func(b Bet) string { return b.Sport })
}

func DistinctBetTypes(bets []Bet) []string {
	return distinct(bets, func(b Bet) string { return b.BetType })
}

func DistinctBetSources(bets []Bet) []string {
	return distinct(bets, func(b Bet) string { return b.BetSource })
}

// BuildCatalog compõe as três extrações independentes
func BuildCatalog(bets []Bet) Catalog {
	return Catalog{
		Sports:     DistinctSports(bets),
		BetTypes:   DistinctBetTypes(bets),
		BetSources: DistinctBetSources(bets),
	}
}

// distinct mantém a ordem da primeira ocorrência; nunca retorna nil
func distinct(bets []Bet, field func(Bet) string) []string {
	seen := make(map[string]struct{}, len(bets))
	out := make([]string, 0)
	for _, b := range bets {
		v := field(b)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
