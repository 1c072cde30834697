// Package codec converts events into transport-ready payloads.
//
// The wire format is a self-describing msgpack envelope wrapped in
// standard base64 so it can travel in a text-oriented HTTP body.
package codec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/telhawk-systems/telhawk-beacon/internal/model"
)

// ErrEncoding marks a payload the wire schema cannot represent. Entries
// failing with ErrEncoding are dropped, never retried: a structurally
// invalid payload does not become valid on a second attempt.
var ErrEncoding = errors.New("codec: payload not encodable")

const (
	// Format identifies the envelope encoding on the wire.
	Format = "beacon-msgpack"

	// Version is the envelope schema version.
	Version = 1

	// maxDepth bounds payload nesting. Doubles as the cycle guard:
	// a self-referencing structure exhausts the depth budget.
	maxDepth = 32
)

// Payload is a transport-ready, text-safe encoding of one batch.
type Payload struct {
	// Body is base64(msgpack(batch envelope)).
	Body string

	// Events is the number of events in the batch.
	Events int
}

type eventEnvelope struct {
	ID          uint64                 `msgpack:"id"`
	Collection  string                 `msgpack:"collection"`
	Payload     map[string]interface{} `msgpack:"payload,omitempty"`
	Context     map[string]interface{} `msgpack:"context,omitempty"`
	CreatedAtMs int64                  `msgpack:"created_at_ms"`
}

type batchEnvelope struct {
	Format  string          `msgpack:"format"`
	Version int             `msgpack:"version"`
	Events  []eventEnvelope `msgpack:"events"`
}

// Validate reports whether the event's payload and context are
// representable on the wire. Pure; no I/O.
func Validate(ev *model.Event) error {
	if ev.Collection == "" {
		return fmt.Errorf("%w: empty collection", ErrEncoding)
	}
	if err := checkMap(ev.Payload, 0); err != nil {
		return fmt.Errorf("payload: %w", err)
	}
	if err := checkMap(ev.Context, 0); err != nil {
		return fmt.Errorf("context: %w", err)
	}
	return nil
}

// Encode serializes a single event. Deterministic and pure.
func Encode(ev *model.Event) (Payload, error) {
	return EncodeBatch([]*model.Event{ev})
}

// EncodeBatch serializes a batch of events into one payload.
func EncodeBatch(events []*model.Event) (Payload, error) {
	env := batchEnvelope{
		Format:  Format,
		Version: Version,
		Events:  make([]eventEnvelope, 0, len(events)),
	}

	for _, ev := range events {
		if err := Validate(ev); err != nil {
			return Payload{}, err
		}
		env.Events = append(env.Events, eventEnvelope{
			ID:          ev.ID,
			Collection:  ev.Collection,
			Payload:     ev.Payload,
			Context:     ev.Context,
			CreatedAtMs: ev.CreatedAt.UnixMilli(),
		})
	}

	raw, err := msgpack.Marshal(&env)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	return Payload{
		Body:   base64.StdEncoding.EncodeToString(raw),
		Events: len(events),
	}, nil
}

// Decode reverses EncodeBatch. The pipeline itself never decodes; this
// is the collector-side view used by tests and tooling.
func Decode(body string) ([]*model.Event, error) {
	raw, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}

	var env batchEnvelope
	if err := msgpack.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Format != Format {
		return nil, fmt.Errorf("unexpected format %q", env.Format)
	}

	events := make([]*model.Event, 0, len(env.Events))
	for _, e := range env.Events {
		events = append(events, &model.Event{
			ID:         e.ID,
			Collection: e.Collection,
			Payload:    e.Payload,
			Context:    e.Context,
			CreatedAt:  time.UnixMilli(e.CreatedAtMs).UTC(),
		})
	}
	return events, nil
}

func checkMap(m map[string]interface{}, depth int) error {
	if depth >= maxDepth {
		return fmt.Errorf("%w: nesting exceeds depth %d", ErrEncoding, maxDepth)
	}
	for key, v := range m {
		if err := checkValue(v, depth+1); err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
	}
	return nil
}

func checkValue(v interface{}, depth int) error {
	if depth >= maxDepth {
		return fmt.Errorf("%w: nesting exceeds depth %d", ErrEncoding, maxDepth)
	}

	switch val := v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		[]byte, time.Time, time.Duration:
		return nil
	case map[string]interface{}:
		return checkMap(val, depth)
	case []interface{}:
		for i, item := range val {
			if err := checkValue(item, depth+1); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
		return nil
	}

	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Func, reflect.Chan, reflect.Complex64, reflect.Complex128, reflect.UnsafePointer:
		return fmt.Errorf("%w: unsupported kind %s", ErrEncoding, rv.Kind())
	case reflect.Ptr:
		if rv.IsNil() {
			return nil
		}
		return checkValue(rv.Elem().Interface(), depth+1)
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := checkValue(rv.Index(i).Interface(), depth+1); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
		return nil
	case reflect.Map:
		for _, key := range rv.MapKeys() {
			if err := checkValue(rv.MapIndex(key).Interface(), depth+1); err != nil {
				return err
			}
		}
		return nil
	case reflect.Struct:
		// Structs marshal field-by-field; msgpack handles them.
		return nil
	default:
		return nil
	}
}
