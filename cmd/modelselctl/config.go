package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"modelsel/internal/inputs"
	"modelsel/internal/map2rec"
	"modelsel/internal/order"
	"modelsel/internal/search"
)

const (
	defaultOrderSection  = ""
	defaultInputsSection = ""
)

// warnTo reports fields of a config file that were skipped.
func warnTo(w io.Writer, path string) map2rec.WarnFunc {
	return func(field string, value any, err error) {
		fmt.Fprintf(w, "config warning file=%s field=%s value=%v err=%v\n", path, field, value, err)
	}
}

func loadOrderConfig(path, section string) (order.Config, error) {
	if path == "" {
		return order.DefaultConfig(), nil
	}
	fields, err := map2rec.LoadFile(path, section)
	if err != nil {
		return order.Config{}, err
	}
	return map2rec.ConvertSimulatedAnnealing(fields, warnTo(os.Stderr, path)), nil
}

func loadInputsConfig(path, section string) (inputs.Config, error) {
	if path == "" {
		return inputs.DefaultConfig(), nil
	}
	fields, err := map2rec.LoadFile(path, section)
	if err != nil {
		return inputs.Config{}, err
	}
	return map2rec.ConvertSelectivePruning(fields, warnTo(os.Stderr, path)), nil
}

// overrideSettingsFromFlags applies the shared options whose flags were set
// on the command line.
func overrideSettingsFromFlags(s *search.Settings, set map[string]bool, flagValue map[string]any) error {
	if set["tolerance"] {
		if err := s.SetTolerance(flagValue["tolerance"].(float64)); err != nil {
			return err
		}
	}
	if set["goal"] {
		if err := s.SetPerformanceGoal(flagValue["goal"].(float64)); err != nil {
			return err
		}
	}
	if set["max-iterations"] {
		if err := s.SetMaximumIterations(flagValue["max-iterations"].(int)); err != nil {
			return err
		}
	}
	if set["max-time"] {
		if err := s.SetMaximumTime(flagValue["max-time"].(time.Duration)); err != nil {
			return err
		}
	}
	if set["reserve-parameters"] {
		s.SetReserveParametersData(flagValue["reserve-parameters"].(bool))
	}
	if set["display"] {
		s.SetDisplay(flagValue["display"].(bool))
	}
	return nil
}

func overrideOrderFromFlags(cfg *order.Config, set map[string]bool, flagValue map[string]any) error {
	if err := overrideSettingsFromFlags(&cfg.Settings, set, flagValue); err != nil {
		return err
	}
	if set["min-order"] || set["max-order"] {
		minimum, maximum := cfg.MinimumOrder(), cfg.MaximumOrder()
		if set["min-order"] {
			minimum = flagValue["min-order"].(int)
		}
		if set["max-order"] {
			maximum = flagValue["max-order"].(int)
		}
		if err := cfg.SetOrderRange(minimum, maximum); err != nil {
			return err
		}
	}
	if set["trials"] {
		if err := cfg.SetTrialsNumber(flagValue["trials"].(int)); err != nil {
			return err
		}
	}
	if set["performance-method"] {
		method, err := order.ParsePerformanceMethod(flagValue["performance-method"].(string))
		if err != nil {
			return err
		}
		if err := cfg.SetPerformanceMethod(method); err != nil {
			return err
		}
	}
	if set["cooling-rate"] {
		if err := cfg.SetCoolingRate(flagValue["cooling-rate"].(float64)); err != nil {
			return err
		}
	}
	if set["min-temperature"] {
		if err := cfg.SetMinimumTemperature(flagValue["min-temperature"].(float64)); err != nil {
			return err
		}
	}
	if set["max-generalization-failures"] {
		if err := cfg.SetMaximumGeneralizationFailures(flagValue["max-generalization-failures"].(int)); err != nil {
			return err
		}
	}
	return nil
}

func overrideInputsFromFlags(cfg *inputs.Config, set map[string]bool, flagValue map[string]any) error {
	if err := overrideSettingsFromFlags(&cfg.Settings, set, flagValue); err != nil {
		return err
	}
	if set["min-inputs"] {
		if err := cfg.SetMinimumInputs(flagValue["min-inputs"].(int)); err != nil {
			return err
		}
	}
	if set["max-selection-failures"] {
		if err := cfg.SetMaximumSelectionFailures(flagValue["max-selection-failures"].(int)); err != nil {
			return err
		}
	}
	return nil
}
