package plan

import (
	"math/big"

	"github.com/zclconf/go-cty/cty"
)

// ctyToGo converts a cty literal into the plain Go value used in plan
// documents. The plan format is a simple nested record structure
// independent of any infrastructure templating language.
func ctyToGo(v cty.Value) any {
	if v.IsNull() {
		return nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString()
	case ty == cty.Bool:
		return v.True()
	case ty == cty.Number:
		return numberToGo(v.AsBigFloat())
	case ty.IsListType() || ty.IsSetType() || ty.IsTupleType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			out = append(out, ctyToGo(elem))
		}
		return out
	case ty.IsMapType() || ty.IsObjectType():
		out := make(map[string]any)
		for it := v.ElementIterator(); it.Next(); {
			key, elem := it.Element()
			out[key.AsString()] = ctyToGo(elem)
		}
		return out
	default:
		return v.GoString()
	}
}

// numberToGo keeps whole numbers integral so plan documents round-trip
// without spurious float formatting. The integral type is int, the same
// type yaml.v3 decodes small integers into, so a persisted-and-reloaded
// plan compares equal to a freshly generated one.
func numberToGo(f *big.Float) any {
	if i, acc := f.Int64(); acc == big.Exact {
		return int(i)
	}
	out, _ := f.Float64()
	return out
}
