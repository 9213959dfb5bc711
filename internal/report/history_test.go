package report

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validResultJSON = `{
	"analysis": {
		"R1": {"risco": 1.2e-5, "necessita_protecao": true},
		"R2": {"risco": 3.0e-6, "necessita_protecao": false},
		"R3": {"risco": 0, "necessita_protecao": false},
		"R4": {"risco": 8.4e-4, "necessita_protecao": true}
	},
	"finalRisks": {"R1": 1.2e-5, "R2": 3.0e-6, "R3": 0, "R4": 8.4e-4}
}`

const validParamsJSON = `{
	"Ng": 8, "L": 15, "W": 20, "H": 6,
	"cd_localizacao": "isolada", "spda_classe": "III",
	"tem_linha_energia": true, "Le_energia": 100,
	"valor_predio": 100000, "valor_conteudo": 50000,
	"valor_sistemas": 20000, "valor_animais": 0, "valor_total": 170000
}`

func rawRecord(id int64, params, result string) RawHistoryRecord {
	return RawHistoryRecord{
		ID:         id,
		CreatedAt:  time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Parameters: json.RawMessage(params),
		Result:     json.RawMessage(result),
	}
}

func TestParseHistoryObjectFields(t *testing.T) {
	records := ParseHistory([]RawHistoryRecord{rawRecord(1, validParamsJSON, validResultJSON)})
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, int64(1), record.ID)
	assert.Equal(t, 15.0, record.Parameters.Length)
	assert.Equal(t, "isolada", record.Parameters.Siting)
	assert.True(t, record.Result.Analysis[CategoryLifeLoss].ProtectionRequired)
	assert.False(t, record.Result.Analysis[CategoryServiceLoss].ProtectionRequired)
	assert.InDelta(t, 8.4e-4, record.Result.FinalRisks[CategoryEconomicLoss], 1e-12)
}

func TestParseHistoryStringEncodedFields(t *testing.T) {
	// The backend stores parameters/result as text columns, so they can
	// arrive as JSON strings wrapping the object.
	quotedParams, err := json.Marshal(validParamsJSON)
	require.NoError(t, err)
	quotedResult, err := json.Marshal(validResultJSON)
	require.NoError(t, err)

	records := ParseHistory([]RawHistoryRecord{rawRecord(2, string(quotedParams), string(quotedResult))})
	require.Len(t, records, 1)
	assert.Equal(t, 20.0, records[0].Parameters.Width)
	assert.True(t, records[0].Result.Analysis[CategoryEconomicLoss].ProtectionRequired)
}

func TestParseHistoryDropsCorruptRecordOnly(t *testing.T) {
	raw := []RawHistoryRecord{
		rawRecord(1, validParamsJSON, validResultJSON),
		rawRecord(2, `{"L": not-json`, validResultJSON),
		rawRecord(3, validParamsJSON, `"still { not json"`),
		rawRecord(4, validParamsJSON, validResultJSON),
	}

	records := ParseHistory(raw)
	require.Len(t, records, 2)
	assert.Equal(t, int64(1), records[0].ID)
	assert.Equal(t, int64(4), records[1].ID)
}

func TestParseHistoryDropsRecordMissingCategory(t *testing.T) {
	partial := `{
		"analysis": {"R1": {"risco": 1, "necessita_protecao": true}},
		"finalRisks": {"R1": 1}
	}`
	records := ParseHistory([]RawHistoryRecord{rawRecord(7, validParamsJSON, partial)})
	assert.Empty(t, records)
}

func TestParseHistoryEmptyBatch(t *testing.T) {
	assert.Empty(t, ParseHistory(nil))
	assert.Empty(t, ParseHistory([]RawHistoryRecord{}))
}

func TestValidateRequiresAllCategories(t *testing.T) {
	result := RiskAnalysisResult{Analysis: map[Category]Assessment{}}
	for _, category := range Categories {
		err := result.Validate()
		require.Error(t, err)
		result.Analysis[category] = Assessment{}
		_ = err
	}
	assert.NoError(t, result.Validate())

	assert.Error(t, RiskAnalysisResult{}.Validate())
}

func TestComputedTotal(t *testing.T) {
	params := CalculationParameters{
		BuildingValue: 100000,
		ContentsValue: 50000,
		SystemsValue:  20000,
		AnimalValue:   5000,
	}
	assert.Equal(t, 175000.0, params.ComputedTotal())
}

func TestCategoryDisplayNames(t *testing.T) {
	for _, category := range Categories {
		assert.NotEqual(t, string(category), category.DisplayName(),
			fmt.Sprintf("category %s should have a descriptive name", category))
	}
	assert.Equal(t, "R9", Category("R9").DisplayName())
}
