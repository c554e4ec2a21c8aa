package types

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// The outcome of running a module
type Result struct {
	Changed  bool                                `json:"changed"`
	Skipped  bool                                `json:"skipped,omitempty"`
	Msg      string                              `json:"msg"`
	Data     *orderedmap.OrderedMap[string, any] `json:"data,omitempty"`
	Warnings []string                            `json:"warnings,omitempty"`
}

func NewResult() *Result {
	return &Result{
		Data: orderedmap.New[string, any](),
	}
}

func (r *Result) Set(key string, value any) {
	if r.Data == nil {
		r.Data = orderedmap.New[string, any]()
	}
	r.Data.Set(key, value)
}

func (r *Result) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Appends to Msg, keeping what is already there
func (r *Result) AddMsg(msg string) {
	if r.Msg == "" {
		r.Msg = msg
		return
	}
	r.Msg += "; " + msg
}
