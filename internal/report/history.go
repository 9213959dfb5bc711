package report

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ParseHistory decodes raw history records. A record whose parameters or
// result cannot be parsed is dropped with a warning; one corrupt record
// never aborts the batch.
func ParseHistory(raw []RawHistoryRecord) []HistoryRecord {
	records := make([]HistoryRecord, 0, len(raw))
	for _, entry := range raw {
		record, err := parseRecord(entry)
		if err != nil {
			log.Warn().Int64("id", entry.ID).Err(err).Msg("Dropping corrupt history record")
			continue
		}
		records = append(records, record)
	}
	return records
}

func parseRecord(entry RawHistoryRecord) (HistoryRecord, error) {
	var params CalculationParameters
	if err := decodeMaybeString(entry.Parameters, &params); err != nil {
		return HistoryRecord{}, fmt.Errorf("parse parameters: %w", err)
	}

	var result rawResult
	if err := decodeMaybeString(entry.Result, &result); err != nil {
		return HistoryRecord{}, fmt.Errorf("parse result: %w", err)
	}

	analysis := RiskAnalysisResult{
		Analysis:   result.Analysis,
		FinalRisks: result.FinalRisks,
	}
	if err := analysis.Validate(); err != nil {
		return HistoryRecord{}, err
	}

	return HistoryRecord{
		ID:         entry.ID,
		CreatedAt:  entry.CreatedAt,
		Parameters: params,
		Result:     analysis,
	}, nil
}

// decodeMaybeString unmarshals a value that may be a JSON object or a
// JSON-encoded string containing an object.
func decodeMaybeString(raw json.RawMessage, destination any) error {
	if len(raw) == 0 {
		return fmt.Errorf("empty field")
	}
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return err
		}
		return json.Unmarshal([]byte(text), destination)
	}
	return json.Unmarshal(raw, destination)
}
