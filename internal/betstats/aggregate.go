package betstats

// Summary são as métricas agregadas de um subconjunto de apostas.
// Valores em precisão total; arredondamento só na apresentação.
type Summary struct {
	TotalBets       int
	Wins            int
	Losses          int
	Pushes          int
	TotalProfitLoss float64
	TotalStaked     float64
	WinRate         float64 // 0..100, pushes fora do denominador
	ROI             float64 // P/L sobre o stake de todas as apostas
}

// Accumulator agrega apostas de forma incremental. O zero value está pronto para uso.
type Accumulator struct {
	total  int
	wins   int
	pushes int
	pl     float64
	staked float64
}

func (a *Accumulator) Add(b Bet) {
	a.total++
	a.staked += b.Amount
	a.pl += b.Profit()
	switch b.Outcome {
	case OutcomeWin:
		a.wins++
	case OutcomePush:
		a.pushes++
	}
}

// Summary calcula as métricas derivadas do estado acumulado
func (a *Accumulator) Summary() Summary {
	s := Summary{
		TotalBets:       a.total,
		Wins:            a.wins,
		Pushes:          a.pushes,
		Losses:          a.total - a.wins - a.pushes,
		TotalProfitLoss: a.pl,
		TotalStaked:     a.staked,
	}
	if decided := a.total - a.pushes; decided > 0 {
		s.WinRate = float64(a.wins) / float64(decided) * 100
	}
	if a.total > 0 && a.staked > 0 {
		s.ROI = a.pl / a.staked * 100
	}
	return s
}

// Aggregate reduz o subconjunto inteiro. Subconjunto vazio gera o Summary zerado.
func Aggregate(bets []Bet) Summary {
	var acc Accumulator
	for _, b := range bets {
		acc.Add(b)
	}
	return acc.Summary()
}
