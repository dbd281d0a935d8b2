package store

import (
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
)

const (
	versionKey     = "version"
	legacyStateKey = "state"
)

// RawRecord is a record decoded without its concrete type, as handed to migrations.
type RawRecord = map[string]interface{}

// Migration upgrades the records of an envelope from version N to N+1.
type Migration func(records []RawRecord) ([]RawRecord, error)

// Defaulter is implemented by records that fill in fields missing from older payloads.
type Defaulter interface {
	ApplyDefaults()
}

var ErrNewerVersion = errors.New("slot was written by a newer version")

// encodeEnvelope returns {"version": version, "<field>": records}.
func encodeEnvelope[T any](field string, version int, records []T) ([]byte, error) {
	if records == nil {
		records = []T{}
	}
	body, err := json.Marshal(records)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling records")
	}
	return json.Marshal(map[string]json.RawMessage{
		versionKey: json.RawMessage(strconv.Itoa(version)),
		field:      body,
	})
}

// decodeEnvelope parses a slot payload, migrates it up to version and defaults missing fields.
// A payload without a version tag is version 0. The legacy layout {"state": {...}, "version": N} is accepted.
func decodeEnvelope[T any](payload []byte, field string, version int, migrations map[int]Migration) ([]T, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, errors.Wrap(err, "unmarshalling envelope")
	}

	stored := 0
	if raw, ok := doc[versionKey]; ok {
		if err := json.Unmarshal(raw, &stored); err != nil {
			return nil, errors.Wrap(err, "unmarshalling envelope version")
		}
	}
	if stored > version {
		return nil, errors.Wrapf(ErrNewerVersion, "stored version %d, supported %d", stored, version)
	}

	body, ok := doc[field]
	if !ok {
		if state, isLegacy := doc[legacyStateKey]; isLegacy {
			var inner map[string]json.RawMessage
			if err := json.Unmarshal(state, &inner); err != nil {
				return nil, errors.Wrap(err, "unmarshalling legacy state")
			}
			body, ok = inner[field]
		}
	}
	if !ok || string(body) == "null" {
		return []T{}, nil
	}

	if stored < version {
		var err error
		if body, err = migrate(body, stored, version, migrations); err != nil {
			return nil, err
		}
	}

	records := make([]T, 0)
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, errors.Wrap(err, "unmarshalling records")
	}
	for i := range records {
		if d, ok := any(&records[i]).(Defaulter); ok {
			d.ApplyDefaults()
		}
	}
	return records, nil
}

func migrate(body json.RawMessage, from, to int, migrations map[int]Migration) (json.RawMessage, error) {
	var raws []RawRecord
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, errors.Wrap(err, "unmarshalling raw records")
	}
	for v := from; v < to; v++ {
		up, ok := migrations[v]
		if !ok {
			continue
		}
		var err error
		if raws, err = up(raws); err != nil {
			return nil, errors.Wrapf(err, "migrating from version %d", v)
		}
	}
	out, err := json.Marshal(raws)
	return out, errors.Wrap(err, "marshalling migrated records")
}
