package alerts

import (
	"strconv"
	"strings"

	"github.com/ramshi122/crazy-time-predictor/internal/predictor"
	"github.com/ramshi122/crazy-time-predictor/internal/wheel"
)

// evalCondition evaluates a rule condition string against a finished round.
//
// Supported expressions (field operator value):
//
//	confidence > 90
//	spins < 10
//	providers_live < 2
//	agreement == unanimous
//	prediction == pachinko
//	status == local
//	data == mock
//	bonus == true
//
// Numeric fields accept > >= < <= == and !=; the rest accept == and !=.
// Returns (fires, triggering value). Unknown fields never fire.
func evalCondition(cond string, r *predictor.Round) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	switch field {
	case "agreement":
		return compareString(r.Agreement(), op, strings.ToLower(rhs)), 0
	case "status":
		return compareString(r.Status, op, strings.ToLower(rhs)), 0
	case "data":
		return compareString(r.DataSource, op, strings.ToLower(rhs)), 0
	case "prediction":
		got := r.Boxes[predictor.SlotEnsemble].Key
		return compareString(string(got), op, string(wheel.Normalize(rhs))), 0
	case "bonus":
		want, err := strconv.ParseBool(rhs)
		if err != nil {
			return false, 0
		}
		v := 0.0
		if r.AnyBonus() {
			v = 1
		}
		return compareString(strconv.FormatBool(r.AnyBonus()), op, strconv.FormatBool(want)), v
	default:
		v, ok := numericField(field, r)
		if !ok {
			return false, 0
		}
		threshold, err := strconv.ParseFloat(rhs, 64)
		if err != nil {
			return false, 0
		}
		return compareFloat(v, op, threshold), v
	}
}

// numericField maps a field name to its value in the round.
func numericField(field string, r *predictor.Round) (float64, bool) {
	switch field {
	case "confidence":
		return float64(r.Boxes[predictor.SlotEnsemble].Display), true
	case "spins":
		return float64(r.SpinCount), true
	case "providers_live":
		return float64(r.ProvidersLive()), true
	default:
		return 0, false
	}
}

func compareString(v, op, rhs string) bool {
	switch op {
	case "==":
		return v == rhs
	case "!=":
		return v != rhs
	default:
		return false
	}
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	case "!=":
		return v != threshold
	default:
		return false
	}
}
