package recordbase

import "fmt"

// CompareOp selects the comparison applied by a column filter. The zero
// value means "no explicit operator", which the server treats as equality.
type CompareOp int

const (
	opUndefined CompareOp = iota
	OpEqual
	OpNotEqual
	OpLessThan
	OpLessThanEqual
	OpGreaterThan
	OpGreaterThanEqual
	OpLike
	OpRegexp
)

func (op CompareOp) token() string {
	switch op {
	case OpEqual:
		return "$eq"
	case OpNotEqual:
		return "$ne"
	case OpLessThan:
		return "$lt"
	case OpLessThanEqual:
		return "$lte"
	case OpGreaterThan:
		return "$gt"
	case OpGreaterThanEqual:
		return "$gte"
	case OpLike:
		return "$like"
	case OpRegexp:
		return "$re"
	default:
		panic(fmt.Sprint("unknown compare op: ", int(op)))
	}
}

// Filter is a node of a filter-expression tree: leaf column comparisons
// composed via And/Or to arbitrary depth. Trees are built per request,
// serialized into nested bracketed query keys, and discarded after the
// call.
type Filter interface {
	// appendParams serializes the node depth-first under the given key
	// path, preserving composition order.
	appendParams(path string, params []QueryParam) []QueryParam
}

// ColumnFilter compares a single column against a value:
// `filter[col][$op]=value`, or `filter[col]=value` when Op is unset.
type ColumnFilter struct {
	Column string
	Op     CompareOp
	Value  string
}

func (f ColumnFilter) appendParams(path string, params []QueryParam) []QueryParam {
	if f.Op == opUndefined {
		return append(params, QueryParam{
			Key:   fmt.Sprintf("%s[%s]", path, f.Column),
			Value: f.Value,
		})
	}
	return append(params, QueryParam{
		Key:   fmt.Sprintf("%s[%s][%s]", path, f.Column, f.Op.token()),
		Value: f.Value,
	})
}

// And requires every nested filter to match.
type And []Filter

func (f And) appendParams(path string, params []QueryParam) []QueryParam {
	for i, nested := range f {
		params = nested.appendParams(fmt.Sprintf("%s[$and][%d]", path, i), params)
	}
	return params
}

// Or requires at least one nested filter to match.
type Or []Filter

func (f Or) appendParams(path string, params []QueryParam) []QueryParam {
	for i, nested := range f {
		params = nested.appendParams(fmt.Sprintf("%s[$or][%d]", path, i), params)
	}
	return params
}
