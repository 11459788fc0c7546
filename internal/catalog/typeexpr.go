package catalog

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// primitiveTypes is the closed set of bare type keywords a param or
// output block may declare.
var primitiveTypes = map[string]cty.Type{
	"string": cty.String,
	"number": cty.Number,
	"bool":   cty.Bool,
	"any":    cty.DynamicPseudoType,
}

// parseTypeExpr converts the `type` expression of a param or output block
// into its cty.Type. The accepted grammar is deliberately small: the
// primitive keywords plus single-argument list(...) and map(...)
// constructors with a concrete element type.
func parseTypeExpr(expr hcl.Expression) (cty.Type, error) {
	switch v := expr.(type) {
	case *hclsyntax.ScopeTraversalExpr:
		if len(v.Traversal) != 1 {
			return cty.NilType, fmt.Errorf("type keyword must be a single identifier")
		}
		name := v.Traversal.RootName()
		ty, ok := primitiveTypes[name]
		if !ok {
			return cty.NilType, fmt.Errorf("unknown type keyword %q", name)
		}
		return ty, nil

	case *hclsyntax.FunctionCallExpr:
		if v.Name != "list" && v.Name != "map" {
			return cty.NilType, fmt.Errorf("unknown type constructor %q", v.Name)
		}
		if len(v.Args) != 1 {
			return cty.NilType, fmt.Errorf("%s(...) requires exactly one element type, got %d arguments", v.Name, len(v.Args))
		}
		elem, err := parseTypeExpr(v.Args[0])
		if err != nil {
			return cty.NilType, err
		}
		if elem == cty.DynamicPseudoType {
			return cty.NilType, fmt.Errorf("%s(any) is not a valid type: element types must be concrete", v.Name)
		}
		if v.Name == "list" {
			return cty.List(elem), nil
		}
		return cty.Map(elem), nil

	case nil:
		return cty.NilType, fmt.Errorf("missing type expression")

	default:
		return cty.NilType, fmt.Errorf("unsupported type expression")
	}
}
