// Package search translates car search query parameters into MongoDB predicates.
//
// Each known car field accepts one of three value shapes:
//
//	make=toyota                      scalar, equality
//	make=toyota&make=mazda           array, "one of" (also make[]=… or make=["toyota","mazda"])
//	year[min]=1999&year[max]=2010    range, inclusive, either bound optional (also year={"min":1999})
//
// Unknown field names are ignored.
package search

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"carmarket/models"

	"go.mongodb.org/mongo-driver/bson"
)

type fieldType int

const (
	stringField fieldType = iota
	numberField
)

var fields = map[string]fieldType{
	"make":    stringField,
	"model":   stringField,
	"color":   stringField,
	"city":    stringField,
	"year":    numberField,
	"price":   numberField,
	"hand":    numberField,
	"mileage": numberField,
}

type Op int

const (
	OpEq Op = iota
	OpIn
	OpRange
)

type Predicate struct {
	Field  string
	Op     Op
	Value  interface{}
	Values []interface{}
	Min    interface{}
	Max    interface{}
}

// Filter is a conjunction of predicates, sorted by field name.
type Filter []Predicate

func (f Filter) IsEmpty() bool { return len(f) == 0 }

// Parse builds a Filter from URL query values.
func Parse(values url.Values) (Filter, error) {
	type rangeBounds struct{ min, max string }

	scalars := map[string][]string{}
	// values of "field[]" keys; always a one-of, even with a single value
	arrays := map[string][]string{}
	ranges := map[string]*rangeBounds{}

	for key, vals := range values {
		name, bound := splitKey(key)
		if _, known := fields[name]; !known || len(vals) == 0 {
			continue
		}
		switch bound {
		case "min", "max":
			rb := ranges[name]
			if rb == nil {
				rb = &rangeBounds{}
				ranges[name] = rb
			}
			if bound == "min" {
				rb.min = vals[0]
			} else {
				rb.max = vals[0]
			}
		case "[]":
			arrays[name] = append(arrays[name], vals...)
		case "":
			scalars[name] = append(scalars[name], vals...)
		}
	}

	var out Filter
	for name, vals := range scalars {
		if _, both := arrays[name]; both {
			arrays[name] = append(arrays[name], vals...)
			continue
		}
		p, err := parseValues(name, vals)
		if err != nil {
			return nil, err
		}
		if p != nil {
			out = append(out, *p)
		}
	}
	for name, vals := range arrays {
		p, err := buildIn(name, literals(vals))
		if err != nil {
			return nil, err
		}
		if p != nil {
			out = append(out, *p)
		}
	}
	for name, rb := range ranges {
		_, dupScalar := scalars[name]
		_, dupArray := arrays[name]
		if dupScalar || dupArray {
			return nil, models.NewInvalidInputError(fmt.Sprintf("%s cannot be both a value and a range", name))
		}
		p, err := buildRange(name, rb.min, rb.max)
		if err != nil {
			return nil, err
		}
		if p != nil {
			out = append(out, *p)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out, nil
}

// splitKey turns "year[min]" into ("year", "min") and "make[]" into ("make", "[]").
func splitKey(key string) (string, string) {
	if strings.HasSuffix(key, "[]") {
		return strings.TrimSuffix(key, "[]"), "[]"
	}
	open := strings.IndexByte(key, '[')
	if open > 0 && strings.HasSuffix(key, "]") {
		return key[:open], key[open+1 : len(key)-1]
	}
	return key, ""
}

// parseValues handles the values of a plain key. A single value holding a JSON
// array or {"min","max"} object is decoded as such; anything that does not
// decode is matched as a literal.
func parseValues(name string, vals []string) (*Predicate, error) {
	if len(vals) > 1 {
		return buildIn(name, literals(vals))
	}

	raw := strings.TrimSpace(vals[0])
	switch {
	case strings.HasPrefix(raw, "["):
		var arr []interface{}
		if err := json.Unmarshal([]byte(raw), &arr); err == nil {
			return buildIn(name, arr)
		}
	case strings.HasPrefix(raw, "{"):
		var obj struct {
			Min interface{} `json:"min"`
			Max interface{} `json:"max"`
		}
		if err := json.Unmarshal([]byte(raw), &obj); err == nil {
			return buildRange(name, obj.Min, obj.Max)
		}
	}

	v, err := convert(name, raw)
	if err != nil {
		return nil, err
	}
	return &Predicate{Field: name, Op: OpEq, Value: v}, nil
}

func literals(vals []string) []interface{} {
	arr := make([]interface{}, len(vals))
	for i, v := range vals {
		arr[i] = v
	}
	return arr
}

func buildIn(name string, raw []interface{}) (*Predicate, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	values := make([]interface{}, 0, len(raw))
	for _, r := range raw {
		v, err := convert(name, r)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return &Predicate{Field: name, Op: OpIn, Values: values}, nil
}

func buildRange(name string, min, max interface{}) (*Predicate, error) {
	p := &Predicate{Field: name, Op: OpRange}
	var err error
	if !isBlank(min) {
		if p.Min, err = convert(name, min); err != nil {
			return nil, err
		}
	}
	if !isBlank(max) {
		if p.Max, err = convert(name, max); err != nil {
			return nil, err
		}
	}
	if p.Min == nil && p.Max == nil {
		return nil, nil
	}
	return p, nil
}

func isBlank(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

// convert coerces a raw query or JSON value to the field's stored type.
// Whole numbers become int64 so equality against integer fields matches.
func convert(name string, raw interface{}) (interface{}, error) {
	if fields[name] == stringField {
		switch v := raw.(type) {
		case string:
			return v, nil
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		}
		return nil, models.NewInvalidInputError(fmt.Sprintf("invalid value for %s", name))
	}

	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, models.NewInvalidInputError(fmt.Sprintf("%s must be a number", name))
		}
		f = parsed
	default:
		return nil, models.NewInvalidInputError(fmt.Sprintf("%s must be a number", name))
	}
	if f == float64(int64(f)) {
		return int64(f), nil
	}
	return f, nil
}

// BSON renders the filter as a MongoDB query document.
func (f Filter) BSON() bson.M {
	out := bson.M{}
	for _, p := range f {
		switch p.Op {
		case OpEq:
			out[p.Field] = p.Value
		case OpIn:
			out[p.Field] = bson.M{"$in": p.Values}
		case OpRange:
			bounds := bson.M{}
			if p.Min != nil {
				bounds["$gte"] = p.Min
			}
			if p.Max != nil {
				bounds["$lte"] = p.Max
			}
			out[p.Field] = bounds
		}
	}
	return out
}
