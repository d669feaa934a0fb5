package crdt

import (
	"encoding/json"
	"strconv"
)

// encodeTaggedValue renders v the way §6.2 requires: numeric values as
// JSON strings (decodeTaggedValue parses them back into the float64 or
// int32 field), booleans and strings natively, and a tombstone as a
// bare JSON null.
func encodeTaggedValue(v TaggedValue) (json.RawMessage, error) {
	if v.Tombstone {
		return json.RawMessage("null"), nil
	}
	switch v.Tag {
	case TagBoolean:
		return json.Marshal(v.Bool)
	case TagDouble:
		return json.Marshal(strconv.FormatFloat(v.Double, 'g', -1, 64))
	case TagInteger:
		return json.Marshal(strconv.FormatInt(int64(v.Int), 10))
	case TagString:
		return json.Marshal(v.Str)
	default:
		return nil, &ErrMalformedJSON{Type: "TaggedValue", Reason: "unknown type tag " + string(v.Tag)}
	}
}

// decodeTaggedValue parses a value encoded by encodeTaggedValue back
// into a TaggedValue tagged with tag.
func decodeTaggedValue(tag TypeTag, raw json.RawMessage) (TaggedValue, error) {
	if string(raw) == "null" {
		return tombstone(tag), nil
	}
	switch tag {
	case TagBoolean:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return TaggedValue{}, &ErrMalformedJSON{Type: "TaggedValue", Reason: err.Error()}
		}
		return boolValue(b), nil
	case TagDouble:
		s, err := unquoteNumber(raw)
		if err != nil {
			return TaggedValue{}, err
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return TaggedValue{}, &ErrMalformedJSON{Type: "TaggedValue", Reason: err.Error()}
		}
		return doubleValue(f), nil
	case TagInteger:
		s, err := unquoteNumber(raw)
		if err != nil {
			return TaggedValue{}, err
		}
		i, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return TaggedValue{}, &ErrMalformedJSON{Type: "TaggedValue", Reason: err.Error()}
		}
		return intValue(int32(i)), nil
	case TagString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return TaggedValue{}, &ErrMalformedJSON{Type: "TaggedValue", Reason: err.Error()}
		}
		return stringValue(s), nil
	default:
		return TaggedValue{}, &ErrMalformedJSON{Type: "TaggedValue", Reason: "unknown type tag " + string(tag)}
	}
}

func unquoteNumber(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &ErrMalformedJSON{Type: "TaggedValue", Reason: "numeric value must be a JSON string: " + err.Error()}
	}
	return s, nil
}
