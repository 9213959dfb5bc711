// Package report defines the contract of the full risk analysis produced by
// the backend (NBR 5419 risks R1-R4) and the parsing of calculation history
// records.
package report

import (
	"encoding/json"
	"fmt"
	"time"
)

// Category identifies one of the four fixed risk categories.
type Category string

const (
	CategoryLifeLoss     Category = "R1"
	CategoryServiceLoss  Category = "R2"
	CategoryCulturalLoss Category = "R3"
	CategoryEconomicLoss Category = "R4"
)

// Categories lists the four risk categories in presentation order.
var Categories = []Category{
	CategoryLifeLoss,
	CategoryServiceLoss,
	CategoryCulturalLoss,
	CategoryEconomicLoss,
}

// DisplayName returns the human-readable loss description for the category.
func (c Category) DisplayName() string {
	switch c {
	case CategoryLifeLoss:
		return "loss of human life"
	case CategoryServiceLoss:
		return "loss of public services"
	case CategoryCulturalLoss:
		return "loss of cultural heritage"
	case CategoryEconomicLoss:
		return "economic loss"
	default:
		return string(c)
	}
}

// Assessment is the backend's verdict for a single risk category.
type Assessment struct {
	Risk               float64 `json:"risco"`
	ProtectionRequired bool    `json:"necessita_protecao"`
}

// RiskAnalysisResult is the full analysis produced by the backend. It is
// consumed, never produced, by this client; Validate must be called before
// any field is trusted.
type RiskAnalysisResult struct {
	Analysis   map[Category]Assessment `json:"analysis"`
	FinalRisks map[Category]float64    `json:"finalRisks"`
}

// Validate checks that every fixed risk category is present in the analysis.
func (r RiskAnalysisResult) Validate() error {
	if r.Analysis == nil {
		return fmt.Errorf("risk analysis result has no analysis map")
	}
	for _, category := range Categories {
		if _, ok := r.Analysis[category]; !ok {
			return fmt.Errorf("risk analysis result is missing category %s", category)
		}
	}
	return nil
}

// PowerLine describes the power-supply line entering the structure.
type PowerLine struct {
	Present     bool    `json:"tem_linha_energia"`
	Length      float64 `json:"Le_energia"`
	Install     string  `json:"ci_energia"`
	LineType    string  `json:"ct_energia"`
	Environment string  `json:"ce_energia"`
}

// SignalLine describes the telecom/signal line entering the structure.
type SignalLine struct {
	Present     bool    `json:"tem_linha_sinal"`
	Length      float64 `json:"Ls_sinal"`
	Install     string  `json:"ci_sinal"`
	LineType    string  `json:"ct_sinal"`
	Environment string  `json:"ce_sinal"`
}

// CalculationParameters is the full input payload of a complex calculation,
// mirrored back in history records.
type CalculationParameters struct {
	FlashDensity float64 `json:"Ng"`
	Length       float64 `json:"L"`
	Width        float64 `json:"W"`
	Height       float64 `json:"H"`
	Siting       string  `json:"cd_localizacao"`
	SPDAClass    string  `json:"spda_classe"`

	PowerLine
	SignalLine

	ShockProtectionStructure string `json:"pta_medida"`
	ShockProtectionLine      string `json:"ptu_medida"`
	SPDLevel                 string `json:"pspd_nivel"`
	InternalWiring           string `json:"ks3_fiacao"`
	FloorType                string `json:"rt_piso"`
	FireProtection           string `json:"rp_incendio"`
	FireRisk                 string `json:"rf_risco"`
	SpecialHazard            string `json:"hz_perigo"`

	PeopleInside      float64 `json:"pessoas_interior"`
	PeopleOutside     float64 `json:"pessoas_exterior"`
	TimeOutsideHours  float64 `json:"tempo_exterior_pessoas"`
	CulturalHeritage  bool    `json:"patrimonio_cultural"`
	ContainsAnimals   bool    `json:"contem_animais"`
	StructureTypeD2   string  `json:"tipo_estrutura_d2"`
	AnimalValue       float64 `json:"valor_animais"`
	BuildingValue     float64 `json:"valor_predio"`
	ContentsValue     float64 `json:"valor_conteudo"`
	SystemsValue      float64 `json:"valor_sistemas"`
	TotalValue        float64 `json:"valor_total"`
}

// ComputedTotal returns the sum of all valuation fields. The backend expects
// valor_total to carry this sum on submission.
func (p CalculationParameters) ComputedTotal() float64 {
	return p.BuildingValue + p.ContentsValue + p.SystemsValue + p.AnimalValue
}

// HistoryRecord is one past calculation with its parameters and result.
type HistoryRecord struct {
	ID         int64
	CreatedAt  time.Time
	Parameters CalculationParameters
	Result     RiskAnalysisResult
}

// RawHistoryRecord is the wire shape of a history entry. The backend stores
// parameters and result as text, so they may arrive either as JSON objects
// or as JSON-encoded strings.
type RawHistoryRecord struct {
	ID         int64           `json:"id"`
	CreatedAt  time.Time       `json:"created_at"`
	Parameters json.RawMessage `json:"parameters"`
	Result     json.RawMessage `json:"result"`
}

type rawResult struct {
	Analysis   map[Category]Assessment `json:"analysis"`
	FinalRisks map[Category]float64    `json:"finalRisks"`
}
