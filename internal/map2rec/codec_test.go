package map2rec

import (
	"encoding/json"
	"errors"
	"testing"

	"modelsel/internal/order"
)

func TestEncodeDecodeRecordRoundTripAllKinds(t *testing.T) {
	for _, kind := range Kinds() {
		fields, err := DefaultRecord(kind)
		if err != nil {
			t.Fatalf("default record for %s: %v", kind, err)
		}
		data, err := EncodeRecord(kind, fields)
		if err != nil {
			t.Fatalf("encode %s: %v", kind, err)
		}
		gotKind, gotFields, err := DecodeRecord(data)
		if err != nil {
			t.Fatalf("decode %s: %v", kind, err)
		}
		if gotKind != kind || len(gotFields) != len(fields) {
			t.Fatalf("unexpected decoded record for %s: %s %v", kind, gotKind, gotFields)
		}
	}
}

func TestDecodedRecordConvertsBackToConfig(t *testing.T) {
	cfg := order.DefaultConfig()
	if err := cfg.SetTrialsNumber(4); err != nil {
		t.Fatalf("set trials: %v", err)
	}
	data, err := EncodeRecord(KindSimulatedAnnealing, SimulatedAnnealingFields(cfg))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	kind, fields, err := DecodeRecord(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, err := Convert(kind, fields, func(field string, _ any, err error) {
		t.Fatalf("unexpected warning for %s: %v", field, err)
	})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if got.(order.Config).TrialsNumber() != 4 {
		t.Fatalf("unexpected trials after round trip: %+v", got)
	}
}

func TestEncodeRecordRejectsUnknownKind(t *testing.T) {
	if _, err := EncodeRecord("unknown", map[string]any{}); !errors.Is(err, ErrUnsupportedKind) {
		t.Fatalf("expected ErrUnsupportedKind, got %v", err)
	}
}

func TestDecodeRecordRejectsVersionMismatch(t *testing.T) {
	data, err := json.Marshal(RecordEnvelope{SchemaVersion: 99, CodecVersion: 1, Kind: KindSelectivePruning})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, _, err := DecodeRecord(data); !errors.Is(err, ErrRecordVersionMismatch) {
		t.Fatalf("expected ErrRecordVersionMismatch, got %v", err)
	}

	data, err = json.Marshal(RecordEnvelope{SchemaVersion: 1, CodecVersion: 1, Kind: "population"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, _, err := DecodeRecord(data); !errors.Is(err, ErrUnsupportedKind) {
		t.Fatalf("expected ErrUnsupportedKind, got %v", err)
	}
}
