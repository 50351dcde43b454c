package storage

import (
	"encoding/json"
	"fmt"

	"github.com/OCharnyshevich/regionfs/internal/regionfs/nbt"
)

// jsonTypeKey, jsonNameKey and jsonValueKey wrap every tag so round-trip
// conversion can recover the exact NBT tag type from a plain JSON document,
// since JSON alone cannot distinguish, say, a byte array from an int array.
const (
	jsonTypeKey  = "__nbt_type"
	jsonNameKey  = "__nbt_name"
	jsonValueKey = "__nbt_value"
)

// tagToJSON renders an NBT tag as a JSON value preserving enough type
// information to reconstruct the original tag tree.
func tagToJSON(tag *nbt.Tag) (json.RawMessage, error) {
	value, err := tagValueToJSON(tag.Type, tag.Value)
	if err != nil {
		return nil, err
	}

	wrapped := map[string]interface{}{
		jsonTypeKey:  tag.Type,
		jsonNameKey:  tag.Name,
		jsonValueKey: value,
	}
	return json.Marshal(wrapped)
}

func tagValueToJSON(tagType byte, value interface{}) (interface{}, error) {
	switch tagType {
	case nbt.TagByte, nbt.TagShort, nbt.TagInt, nbt.TagLong, nbt.TagFloat, nbt.TagDouble, nbt.TagString:
		return value, nil
	case nbt.TagByteArray:
		return value.([]byte), nil
	case nbt.TagIntArray:
		return value.([]int32), nil
	case nbt.TagLongArray:
		return value.([]int64), nil
	case nbt.TagCompound:
		compound := value.(nbt.Compound)
		out := make(map[string]json.RawMessage, len(compound))
		for name, child := range compound {
			child.Name = name
			encoded, err := tagToJSON(child)
			if err != nil {
				return nil, err
			}
			out[name] = encoded
		}
		return out, nil
	case nbt.TagList:
		list := value.(*nbt.List)
		values := make([]interface{}, len(list.Values))
		for i, v := range list.Values {
			encoded, err := tagValueToJSON(list.ElemType, v)
			if err != nil {
				return nil, err
			}
			values[i] = encoded
		}
		return map[string]interface{}{
			"elemType": list.ElemType,
			"values":   values,
		}, nil
	default:
		return nil, fmt.Errorf("storage: unsupported tag type %d for jsonb encoding", tagType)
	}
}

// jsonToTag reverses tagToJSON.
func jsonToTag(raw json.RawMessage) (*nbt.Tag, error) {
	var wrapped struct {
		Type  byte            `json:"__nbt_type"`
		Name  string          `json:"__nbt_name"`
		Value json.RawMessage `json:"__nbt_value"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("storage: unmarshal jsonb envelope: %w", err)
	}

	value, err := jsonToTagValue(wrapped.Type, wrapped.Value)
	if err != nil {
		return nil, err
	}
	return &nbt.Tag{Type: wrapped.Type, Name: wrapped.Name, Value: value}, nil
}

func jsonToTagValue(tagType byte, raw json.RawMessage) (interface{}, error) {
	switch tagType {
	case nbt.TagByte:
		var v byte
		err := json.Unmarshal(raw, &v)
		return v, err
	case nbt.TagShort:
		var v int16
		err := json.Unmarshal(raw, &v)
		return v, err
	case nbt.TagInt:
		var v int32
		err := json.Unmarshal(raw, &v)
		return v, err
	case nbt.TagLong:
		var v int64
		err := json.Unmarshal(raw, &v)
		return v, err
	case nbt.TagFloat:
		var v float32
		err := json.Unmarshal(raw, &v)
		return v, err
	case nbt.TagDouble:
		var v float64
		err := json.Unmarshal(raw, &v)
		return v, err
	case nbt.TagString:
		var v string
		err := json.Unmarshal(raw, &v)
		return v, err
	case nbt.TagByteArray:
		var v []byte
		err := json.Unmarshal(raw, &v)
		return v, err
	case nbt.TagIntArray:
		var v []int32
		err := json.Unmarshal(raw, &v)
		return v, err
	case nbt.TagLongArray:
		var v []int64
		err := json.Unmarshal(raw, &v)
		return v, err
	case nbt.TagCompound:
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
		out := make(nbt.Compound, len(fields))
		for name, encoded := range fields {
			child, err := jsonToTag(encoded)
			if err != nil {
				return nil, err
			}
			child.Name = name
			out[name] = child
		}
		return out, nil
	case nbt.TagList:
		var wrapped struct {
			ElemType byte              `json:"elemType"`
			Values   []json.RawMessage `json:"values"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, err
		}
		values := make([]interface{}, len(wrapped.Values))
		for i, encoded := range wrapped.Values {
			v, err := jsonToTagValue(wrapped.ElemType, encoded)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		return &nbt.List{ElemType: wrapped.ElemType, Values: values}, nil
	default:
		return nil, fmt.Errorf("storage: unsupported tag type %d for jsonb decoding", tagType)
	}
}
