package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/mmcdole/crate/internal/domain"
)

const snapshotVersion = 1

// snapshot is the persisted shape of the catalog.
type snapshot struct {
	Version int             `json:"version" yaml:"version"`
	Records []domain.Record `json:"records" yaml:"records"`
}

// Codec encodes the catalog snapshot.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Ext() string
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.MarshalIndent(v, "", "  ") }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Ext() string                        { return ".json" }

type yamlCodec struct{}

func (yamlCodec) Marshal(v any) ([]byte, error) {
	return yaml.MarshalWithOptions(v, yaml.Indent(2), yaml.IndentSequence(false))
}
func (yamlCodec) Unmarshal(data []byte, v any) error { return yaml.Unmarshal(data, v) }
func (yamlCodec) Ext() string                        { return ".yaml" }

// JSON and YAML are the supported catalog formats.
var (
	JSON Codec = jsonCodec{}
	YAML Codec = yamlCodec{}
)

// CodecFor maps a config format name to a Codec.
func CodecFor(format string) (Codec, error) {
	switch format {
	case "", "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	default:
		return nil, fmt.Errorf("unknown catalog format: %s", format)
	}
}

func encodeRecords(c Codec, records []domain.Record) ([]byte, error) {
	if records == nil {
		records = []domain.Record{}
	}
	return c.Marshal(snapshot{Version: snapshotVersion, Records: records})
}

func decodeRecords(c Codec, data []byte) ([]domain.Record, error) {
	var snap snapshot
	if err := c.Unmarshal(data, &snap); err != nil {
		return nil, &domain.CorruptError{Key: domain.KeyCatalog, Err: err}
	}
	if snap.Version != snapshotVersion {
		return nil, &domain.CorruptError{
			Key: domain.KeyCatalog,
			Err: fmt.Errorf("unsupported version %d", snap.Version),
		}
	}
	for i, r := range snap.Records {
		if err := r.Validate(); err != nil {
			return nil, &domain.CorruptError{
				Key: domain.KeyCatalog,
				Err: fmt.Errorf("record %d: %w", i, err),
			}
		}
	}
	return snap.Records, nil
}
