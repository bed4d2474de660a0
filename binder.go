package jsonrpc2

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Bind selects a single [MethodDescriptor] from catalog for the given request and
// decodes its params into a positional argument vector, implementing §4.4.
//
// Bind returns [ErrMethodNotFound] if no overload set is registered under
// req.Method, and an [*Error] wrapping [ErrInvalidParams] if no candidate admits
// the supplied params or if more than one candidate ties for best match: per §4.4
// step 3, a runtime tie is a caller error, not a server error, so it is reported
// the same way as no admitting candidate at all rather than as
// [ErrAmbiguousOverload] (which is reserved for the static ambiguity
// [MethodCatalogBuilder.Build] rejects at registration time).
func Bind(catalog *MethodCatalog, req *Request) (*MethodDescriptor, []any, error) {
	candidates := catalog.Lookup(req.Method)
	if len(candidates) == 0 {
		return nil, nil, ErrMethodNotFound
	}

	hint := req.Params.TypeHint()

	type admitted struct {
		desc    *MethodDescriptor
		matched int
		byName  map[string]json.RawMessage
		byPos   []json.RawMessage
	}

	var best []admitted

	for _, desc := range candidates {
		switch hint {
		case TypeArray:
			vals, ok := admitArray(desc, req.Params.Value())
			if !ok {
				continue
			}

			best = append(best, admitted{desc: desc, matched: len(vals), byPos: vals})
		case TypeObject:
			obj, ok := admitObject(desc, req.Params.Value())
			if !ok {
				continue
			}

			best = append(best, admitted{desc: desc, matched: len(obj), byName: obj})
		case TypeNotJSON, TypeEmpty, TypeNull:
			if desc.requiredCount() == 0 {
				best = append(best, admitted{desc: desc})
			}
		default:
			continue
		}
	}

	if len(best) == 0 {
		return nil, nil, ErrInvalidParams.WithData("no overload of " + req.Method + " admits the supplied params")
	}

	winner := best[0]
	tied := false

	for _, cand := range best[1:] {
		switch {
		case cand.matched > winner.matched:
			winner, tied = cand, false
		case cand.matched == winner.matched:
			wUnmatched := len(winner.desc.Params) - winner.matched
			cUnmatched := len(cand.desc.Params) - cand.matched

			switch {
			case cUnmatched < wUnmatched:
				winner, tied = cand, false
			case cUnmatched == wUnmatched:
				tied = true
			}
		}
	}

	if tied {
		return nil, nil, ErrInvalidParams.WithData(fmt.Sprintf("ambiguous overload: method %q matches more than one candidate", req.Method))
	}

	args, err := decodeArgs(winner.desc, winner.byPos, winner.byName)
	if err != nil {
		return nil, nil, err
	}

	return winner.desc, args, nil
}

// admitArray checks whether desc admits a sequence-form params value, per §4.4
// step 2 (arity between required-count and total, or unbounded with extras).
func admitArray(desc *MethodDescriptor, raw any) ([]json.RawMessage, bool) {
	msg, ok := raw.(json.RawMessage)
	if !ok {
		return nil, false
	}

	var vals []json.RawMessage
	if err := Unmarshal(msg, &vals); err != nil {
		return nil, false
	}

	minArgs, maxArgs := arityRange(desc)
	if len(vals) < minArgs {
		return nil, false
	}

	if maxArgs != -1 && len(vals) > maxArgs {
		return nil, false
	}

	return vals, true
}

// admitObject checks whether desc admits an object-form params value, per §4.4
// step 2 (every required name present, every supplied name declared unless the
// descriptor allows extras).
func admitObject(desc *MethodDescriptor, raw any) (map[string]json.RawMessage, bool) {
	msg, ok := raw.(json.RawMessage)
	if !ok {
		return nil, false
	}

	var obj map[string]json.RawMessage
	if err := Unmarshal(msg, &obj); err != nil {
		return nil, false
	}

	declared := make(map[string]bool, len(desc.Params))

	for _, p := range desc.Params {
		declared[p.Name] = true

		if !p.Optional {
			if _, present := obj[p.Name]; !present {
				return nil, false
			}
		}
	}

	if !desc.AllowExtraParams {
		for key := range obj {
			if !declared[key] {
				return nil, false
			}
		}
	}

	matched := make(map[string]json.RawMessage, len(desc.Params))

	for _, p := range desc.Params {
		if v, present := obj[p.Name]; present {
			matched[p.Name] = v
		}
	}

	return matched, true
}

// decodeArgs decodes the matched raw slots for desc into a positional []any,
// applying declared defaults for unmatched optional parameters, per §4.4 step 4.
func decodeArgs(desc *MethodDescriptor, byPos []json.RawMessage, byName map[string]json.RawMessage) ([]any, error) {
	args := make([]any, len(desc.Params))

	for i, p := range desc.Params {
		var raw json.RawMessage

		var present bool

		switch {
		case byPos != nil:
			if i < len(byPos) {
				raw, present = byPos[i], true
			}
		case byName != nil:
			raw, present = byName[p.Name]
		}

		if !present {
			args[i] = p.Default
			continue
		}

		target := reflect.New(p.Type)
		if err := Unmarshal(raw, target.Interface()); err != nil {
			return nil, ErrInvalidParams.WithData(fmt.Sprintf("parameter %q: %s", p.Name, err.Error()))
		}

		args[i] = target.Elem().Interface()
	}

	return args, nil
}
