package vectorstore

import (
	"strconv"

	"github.com/qdrant/go-client/qdrant"
)

// toQdrantPayload converts a plain payload map to Qdrant values. Supported
// kinds: string, int, int64, float64, bool and []string; anything else is
// dropped rather than stored with a lossy representation.
func toQdrantPayload(payload map[string]any) map[string]*qdrant.Value {
	out := make(map[string]*qdrant.Value, len(payload))
	for k, v := range payload {
		switch val := v.(type) {
		case string:
			out[k] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: val}}
		case int:
			out[k] = &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(val)}}
		case int64:
			out[k] = &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: val}}
		case float64:
			out[k] = &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: val}}
		case bool:
			out[k] = &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: val}}
		case []string:
			items := make([]*qdrant.Value, len(val))
			for i, s := range val {
				items[i] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
			}
			out[k] = &qdrant.Value{Kind: &qdrant.Value_ListValue{ListValue: &qdrant.ListValue{Values: items}}}
		}
	}
	return out
}

// fromQdrantPayload converts Qdrant values back to a plain payload map.
func fromQdrantPayload(payload map[string]*qdrant.Value) map[string]any {
	if payload == nil {
		return nil
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		if val, ok := fromQdrantValue(v); ok {
			out[k] = val
		}
	}
	return out
}

func fromQdrantValue(v *qdrant.Value) (any, bool) {
	switch val := v.Kind.(type) {
	case *qdrant.Value_StringValue:
		return val.StringValue, true
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue, true
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue, true
	case *qdrant.Value_BoolValue:
		return val.BoolValue, true
	case *qdrant.Value_ListValue:
		items := make([]string, 0, len(val.ListValue.Values))
		for _, item := range val.ListValue.Values {
			if s, ok := item.Kind.(*qdrant.Value_StringValue); ok {
				items = append(items, s.StringValue)
			}
		}
		return items, true
	default:
		return nil, false
	}
}

// pointIDString renders a Qdrant point id as a string.
func pointIDString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	switch v := id.PointIdOptions.(type) {
	case *qdrant.PointId_Uuid:
		return v.Uuid
	case *qdrant.PointId_Num:
		return strconv.FormatUint(v.Num, 10)
	default:
		return ""
	}
}
