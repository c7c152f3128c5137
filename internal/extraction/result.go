// Package extraction turns page text into a structured company profile
// through a primary prompt, a simpler fallback prompt and finally a
// synthetic result derived from the target domain.
package extraction

// Method records which stage of the cascade produced a result.
type Method string

const (
	MethodPrimary  Method = "primary"
	MethodFallback Method = "fallback"
	MethodMock     Method = "mock"
)

// Result is the canonical extraction output. It is never mutated after the
// pipeline returns it.
type Result struct {
	Summary    string   `json:"summary"`
	WhatTheyDo []string `json:"whatTheyDo"`
	Keywords   []string `json:"keywords"`
	Signals    []string `json:"signals"`
	Method     Method   `json:"extractionMethod"`
}
