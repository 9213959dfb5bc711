package risk

// Coefficient tables from NBR 5419 Annex L. Keys are the categorical values
// used on the wire by the backend; an unknown key resolves to the neutral
// coefficient 1.0 rather than failing the calculation.

// Table is a categorical coefficient lookup with a neutral default.
type Table map[string]float64

// Lookup resolves a key, returning 1.0 when the key is absent.
func (t Table) Lookup(key string) float64 {
	if value, ok := t[key]; ok {
		return value
	}
	return neutralCoefficient
}

const neutralCoefficient = 1.0

// StructureCoefficients is table L.5.1.2(a): C2, keyed by the combined
// structure-material and roof-material categories.
var StructureCoefficients = Table{
	"metal_metal":                  0.5,
	"metal_nao_metalico":           1.0,
	"metal_combustivel":            2.0,
	"nao_metalico_metal":           1.0,
	"nao_metalico_nao_metalico":    1.0,
	"nao_metalico_combustivel":     2.5,
	"combustivel_metal":            2.0,
	"combustivel_nao_metalico":     2.5,
	"combustivel_combustivel":      3.0,
}

// ContentsCoefficients is table L.5.1.2(b): C3, structure contents value.
var ContentsCoefficients = Table{
	"baixo_valor_nao_combustivel":     0.5,
	"valor_padrao_nao_combustivel":    1.0,
	"alto_valor_moderado_combustivel": 2.0,
	"valor_excepcional_inflamavel":    3.0,
	"valor_excepcional_cultural":      4.0,
}

// OccupancyCoefficients is table L.5.1.2(c): C4, structure occupancy.
var OccupancyCoefficients = Table{
	"desocupado":             0.5,
	"normalmente_ocupado":    1.0,
	"dificil_evacuar_panico": 3.0,
}

// ConsequenceCoefficients is table L.5.1.2(d): C5, consequence of a strike.
var ConsequenceCoefficients = Table{
	"servico_nao_requerido": 1.0,
	"servico_requerido":     5.0,
	"impacto_ambiental":     10.0,
}

// SitingCoefficients is table L.4.2: Cd, relative siting of the structure.
var SitingCoefficients = Table{
	"cercada_objetos_altos":         0.25,
	"cercada_objetos_iguais_baixos": 0.5,
	"isolada":                       1.0,
	"isolada_topo_colina":           2.0,
}
