package map2rec

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

const (
	SupportedSchemaVersion = 1
	SupportedCodecVersion  = 1
)

var ErrRecordVersionMismatch = errors.New("record version mismatch")

type RecordEnvelope struct {
	SchemaVersion int            `json:"schema_version"`
	CodecVersion  int            `json:"codec_version"`
	Kind          string         `json:"kind"`
	Fields        map[string]any `json:"fields"`
}

func EncodeRecord(kind string, fields map[string]any) ([]byte, error) {
	if !slices.Contains(Kinds(), kind) {
		return nil, ErrUnsupportedKind
	}
	env := RecordEnvelope{
		SchemaVersion: SupportedSchemaVersion,
		CodecVersion:  SupportedCodecVersion,
		Kind:          kind,
		Fields:        fields,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", kind, err)
	}
	return data, nil
}

func DecodeRecord(data []byte) (string, map[string]any, error) {
	var env RecordEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, err
	}
	if env.SchemaVersion != SupportedSchemaVersion || env.CodecVersion != SupportedCodecVersion {
		return "", nil, fmt.Errorf("%w: schema=%d codec=%d", ErrRecordVersionMismatch, env.SchemaVersion, env.CodecVersion)
	}
	if !slices.Contains(Kinds(), env.Kind) {
		return "", nil, ErrUnsupportedKind
	}
	if env.Fields == nil {
		env.Fields = map[string]any{}
	}
	return env.Kind, env.Fields, nil
}
