package approval

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/viant/structology/conv"

	"github.com/shahfaizanali/manzoori/extension"
	"github.com/shahfaizanali/manzoori/model"
)

// Codec serializes records into snapshots and reconstructs live, typed
// record instances from them. Snapshots are JSON; the concrete Go type is
// resolved through the extension registry using the descriptor's TargetType.
type Codec struct {
	types     *extension.Types
	converter *conv.Converter
}

// NewCodec creates a snapshot codec backed by the supplied type registry.
func NewCodec(types *extension.Types) *Codec {
	options := conv.DefaultOptions()
	options.ClonePointerData = true
	options.IgnoreUnmapped = true
	options.AccessUnexported = true
	return &Codec{
		types:     types,
		converter: conv.NewConverter(options),
	}
}

// Encode serializes the record full state.
func (c *Codec) Encode(record model.Record) (json.RawMessage, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record %v: %w", record.ID(), err)
	}
	return data, nil
}

// FieldMap returns the record's field values keyed by JSON field name.
func (c *Codec) FieldMap(record model.Record) (map[string]interface{}, error) {
	data, err := c.Encode(record)
	if err != nil {
		return nil, err
	}
	var values map[string]interface{}
	if err = json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to map record %v: %w", record.ID(), err)
	}
	return values, nil
}

// Decode reconstructs a live record of the descriptor's concrete type with
// the proposed values applied. It is side-effect free and safe to call
// repeatedly.
func (c *Codec) Decode(change *Change) (model.Record, error) {
	if change == nil {
		return nil, fmt.Errorf("cannot decode nil change")
	}
	xType := c.types.Lookup(change.TargetType)
	if xType == nil {
		return nil, fmt.Errorf("failed to decode change %v: unregistered type %v", change.ID, change.TargetType)
	}
	var values map[string]interface{}
	if err := json.Unmarshal(change.Snapshot, &values); err != nil {
		return nil, fmt.Errorf("failed to decode change %v snapshot: %w", change.ID, err)
	}
	instance := reflect.New(xType.Type).Interface()
	if err := c.converter.Convert(values, instance); err != nil {
		return nil, fmt.Errorf("failed to build %v from change %v: %w", change.TargetType, change.ID, err)
	}
	record, ok := instance.(model.Record)
	if !ok {
		return nil, fmt.Errorf("type %v does not implement model.Record", change.TargetType)
	}
	return record, nil
}
