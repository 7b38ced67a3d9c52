package dto

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/radieske/bet-tracker/internal/betstats"
)

type CreateBetResponse struct {
	ID int64 `json:"id"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// StatsResponse é o formato de GET /stats; valores monetários e percentuais
// vão como string com 2 casas
type StatsResponse struct {
	TotalBets       int    `json:"totalBets"`
	Wins            int    `json:"wins"`
	Losses          int    `json:"losses"`
	Pushes          int    `json:"pushes"`
	WinRate         string `json:"winRate"`
	TotalProfitLoss string `json:"totalProfitLoss"`
	ROI             string `json:"roi"`
}

func NewStatsResponse(s betstats.Summary) StatsResponse {
	return StatsResponse{
		TotalBets:       s.TotalBets,
		Wins:            s.Wins,
		Losses:          s.Losses,
		Pushes:          s.Pushes,
		WinRate:         Fixed2(s.WinRate),
		TotalProfitLoss: Fixed2(s.TotalProfitLoss),
		ROI:             Fixed2(s.ROI),
	}
}

// Fixed2 formata com exatamente duas casas decimais. O arredondamento é feito
// sobre o valor binário exato (1.005 vira "1.00"), empates para longe do zero.
func Fixed2(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0.00"
	}
	return decimal.NewFromFloatWithExponent(v, -2).StringFixed(2)
}

// FiltersResponse é o formato de GET /filters
type FiltersResponse = betstats.Catalog
