package betstats

import "time"

// Range é a palavra-chave simbólica de janela de tempo
type Range string

const (
	RangeToday Range = "today"
	RangeWeek  Range = "week"
	RangeMonth Range = "month"
	RangeYear  Range = "year"
	RangeAll   Range = "all"
)

// ParseRange converte a keyword recebida. Qualquer valor desconhecido vira RangeAll.
func ParseRange(s string) Range {
	switch r := Range(s); r {
	case RangeToday, RangeWeek, RangeMonth, RangeYear:
		return r
	default:
		return RangeAll
	}
}

// Known indica se s é uma keyword reconhecida (usado só para log do fallback)
func Known(s string) bool {
	return s == string(RangeAll) || ParseRange(s) != RangeAll
}

// Interval é o intervalo semiaberto [Start, End)
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

// Resolve calcula o intervalo da keyword ancorado em now, truncado para o início
// do dia local (no fuso de now). Todas as fronteiras derivam do mesmo valor
// capturado; ok=false significa sem filtro de data.
func Resolve(r Range, now time.Time) (Interval, bool) {
	y, m, d := now.Date()
	loc := now.Location()
	day := time.Date(y, m, d, 0, 0, 0, 0, loc)

	switch r {
	case RangeToday:
		return Interval{Start: day, End: day.AddDate(0, 0, 1)}, true
	case RangeWeek:
		// semana começa no domingo (weekday 0)
		start := day.AddDate(0, 0, -int(day.Weekday()))
		return Interval{Start: start, End: start.AddDate(0, 0, 7)}, true
	case RangeMonth:
		start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return Interval{Start: start, End: time.Date(y, m+1, 1, 0, 0, 0, 0, loc)}, true
	case RangeYear:
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		return Interval{Start: start, End: time.Date(y+1, time.January, 1, 0, 0, 0, 0, loc)}, true
	default:
		return Interval{}, false
	}
}
