package dab

import (
	"encoding/json"
	"sort"
)

// Handler executes one operation from its raw JSON payload
type Handler interface {
	Handle(payload []byte) (interface{}, error)
}

// Typed adapts a function over decoded request types to Handler.
// Decode failures are reported as BadRequest with the decoder message.
type Typed[Req any, Resp any] func(Req) (Resp, error)

func (f Typed[Req, Resp]) Handle(payload []byte) (interface{}, error) {
	var req Req
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, BadRequest("%v", err)
	}
	resp, err := f(req)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Table maps operation names to their handlers
type Table map[string]Handler

// Register adds a handler under the operation name
func (t Table) Register(operation string, h Handler) {
	t[operation] = h
}

// Lookup returns the handler for operation
func (t Table) Lookup(operation string) (Handler, bool) {
	h, ok := t[operation]
	return h, ok
}

// Operations returns the registered operation names in sorted order
func (t Table) Operations() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
