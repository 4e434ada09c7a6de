package map2rec

import (
	"fmt"
	"sort"

	"modelsel/internal/inputs"
	"modelsel/internal/order"
	"modelsel/internal/search"
)

// WarnFunc receives fields that could not be applied. The option keeps its
// previous value.
type WarnFunc func(field string, value any, err error)

func Convert(kind string, in map[string]any, warn WarnFunc) (any, error) {
	switch kind {
	case KindSimulatedAnnealing:
		return ConvertSimulatedAnnealing(in, warn), nil
	case KindSelectivePruning:
		return ConvertSelectivePruning(in, warn), nil
	default:
		return nil, ErrUnsupportedKind
	}
}

func ConvertSimulatedAnnealing(in map[string]any, warn WarnFunc) order.Config {
	out := order.DefaultConfig()
	for _, key := range sortedKeys(in) {
		val := in[key]
		var err error
		switch key {
		case FieldMinimumOrder:
			err = applyInt(val, out.SetMinimumOrder)
		case FieldMaximumOrder:
			err = applyInt(val, out.SetMaximumOrder)
		case FieldTrialsNumber:
			err = applyInt(val, out.SetTrialsNumber)
		case FieldPerformanceMethod:
			err = applyString(val, func(s string) error {
				return out.SetPerformanceMethod(order.PerformanceMethod(s))
			})
		case FieldCoolingRate:
			err = applyFloat(val, out.SetCoolingRate)
		case FieldMinimumTemperature:
			err = applyFloat(val, out.SetMinimumTemperature)
		case FieldMaximumGeneralizationFailures:
			err = applyInt(val, out.SetMaximumGeneralizationFailures)
		default:
			err = applySetting(&out.Settings, key, val)
		}
		report(warn, key, val, err)
	}
	return out
}

func ConvertSelectivePruning(in map[string]any, warn WarnFunc) inputs.Config {
	out := inputs.DefaultConfig()
	for _, key := range sortedKeys(in) {
		val := in[key]
		var err error
		switch key {
		case FieldMinimumInputs:
			err = applyInt(val, out.SetMinimumInputs)
		case FieldMaximumSelectionFailures:
			err = applyInt(val, out.SetMaximumSelectionFailures)
		default:
			err = applySetting(&out.Settings, key, val)
		}
		report(warn, key, val, err)
	}
	return out
}

func applySetting(s *search.Settings, key string, val any) error {
	switch key {
	case FieldTolerance:
		return applyFloat(val, s.SetTolerance)
	case FieldPerformanceGoal:
		return applyFloat(val, s.SetPerformanceGoal)
	case FieldMaximumIterations:
		return applyInt(val, s.SetMaximumIterations)
	case FieldMaximumTime:
		d, ok := asDuration(val)
		if !ok {
			return ErrFieldType
		}
		return s.SetMaximumTime(d)
	case FieldReserveTrainingData:
		return applyBool(val, s.SetReserveTrainingData)
	case FieldReserveSelectionData:
		return applyBool(val, s.SetReserveSelectionData)
	case FieldReserveParametersData:
		return applyBool(val, s.SetReserveParametersData)
	case FieldReserveMinimalParameters:
		return applyBool(val, s.SetReserveMinimalParameters)
	case FieldDisplay:
		return applyBool(val, s.SetDisplay)
	default:
		return ErrUnknownField
	}
}

func applyInt(val any, set func(int) error) error {
	n, ok := asInt(val)
	if !ok {
		return ErrFieldType
	}
	return set(n)
}

func applyFloat(val any, set func(float64) error) error {
	f, ok := asFloat64(val)
	if !ok {
		return ErrFieldType
	}
	return set(f)
}

func applyString(val any, set func(string) error) error {
	s, ok := asString(val)
	if !ok {
		return ErrFieldType
	}
	return set(s)
}

func applyBool(val any, set func(bool)) error {
	b, ok := asBool(val)
	if !ok {
		return ErrFieldType
	}
	set(b)
	return nil
}

func report(warn WarnFunc, key string, val any, err error) {
	if err == nil || warn == nil {
		return
	}
	warn(key, val, fmt.Errorf("%s: %w", key, err))
}

func sortedKeys(in map[string]any) []string {
	keys := make([]string, 0, len(in))
	for key := range in {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
