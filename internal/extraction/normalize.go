package extraction

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	maxSummaryLength = 500
	maxWhatTheyDo    = 10
	maxKeywords      = 15
	maxSignals       = 10

	defaultSummary = "Company information extracted from website."
)

var (
	defaultWhatTheyDo = []string{"Comprehensive business solutions"}
	defaultKeywords   = []string{"technology", "innovation"}
	defaultSignals    = []string{"Active operations"}
)

// fieldKind tags the shape a model response field arrived in.
type fieldKind int

const (
	fieldAbsent fieldKind = iota
	fieldString
	fieldList
	fieldOther
)

type itemKind int

const (
	itemString itemKind = iota
	itemObject
	itemOther
)

type rawItem struct {
	kind   itemKind
	text   string
	object map[string]interface{}
}

type rawField struct {
	kind  fieldKind
	text  string
	items []rawItem
}

func classifyField(value interface{}, present bool) rawField {
	if !present || value == nil {
		return rawField{kind: fieldAbsent}
	}

	switch v := value.(type) {
	case string:
		return rawField{kind: fieldString, text: v}
	case []interface{}:
		items := make([]rawItem, 0, len(v))
		for _, item := range v {
			items = append(items, classifyItem(item))
		}
		return rawField{kind: fieldList, items: items}
	default:
		return rawField{kind: fieldOther}
	}
}

func classifyItem(value interface{}) rawItem {
	switch v := value.(type) {
	case string:
		return rawItem{kind: itemString, text: v}
	case map[string]interface{}:
		return rawItem{kind: itemObject, object: v}
	default:
		return rawItem{kind: itemOther}
	}
}

// flatten reduces an item to a trimmed string. Objects contribute their
// string-valued fields in key order, joined by spaces.
func (i rawItem) flatten() string {
	switch i.kind {
	case itemString:
		return strings.TrimSpace(i.text)
	case itemObject:
		keys := make([]string, 0, len(i.object))
		for k := range i.object {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			if s, ok := i.object[k].(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.TrimSpace(strings.Join(parts, " "))
	default:
		return ""
	}
}

// values returns the non-empty flattened items capped at limit, or fallback
// when nothing survives.
func (f rawField) values(limit int, fallback []string) []string {
	var out []string
	switch f.kind {
	case fieldString:
		if s := strings.TrimSpace(f.text); s != "" {
			out = append(out, s)
		}
	case fieldList:
		for _, item := range f.items {
			if s := item.flatten(); s != "" {
				out = append(out, s)
			}
			if len(out) == limit {
				break
			}
		}
	}

	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	return out
}

func normalizeSummary(f rawField) string {
	if f.kind != fieldString {
		return defaultSummary
	}
	summary := strings.TrimSpace(f.text)
	if summary == "" {
		return defaultSummary
	}
	if utf8.RuneCountInString(summary) > maxSummaryLength {
		summary = string([]rune(summary)[:maxSummaryLength])
	}
	return summary
}

// Normalize maps a decoded model response of any shape onto a Result
// without a Method.
func Normalize(raw map[string]interface{}) Result {
	field := func(name string) rawField {
		value, ok := raw[name]
		return classifyField(value, ok)
	}

	whatTheyDo := field("whatTheyDo")
	if whatTheyDo.kind == fieldAbsent {
		whatTheyDo = field("what_they_do")
	}

	return Result{
		Summary:    normalizeSummary(field("summary")),
		WhatTheyDo: whatTheyDo.values(maxWhatTheyDo, defaultWhatTheyDo),
		Keywords:   field("keywords").values(maxKeywords, defaultKeywords),
		Signals:    field("signals").values(maxSignals, defaultSignals),
	}
}

// ParseJSON decodes a model reply into an object. Replies wrapped in prose or
// code fences are handled by decoding the outermost {...} span.
func ParseJSON(text string) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &out); err == nil && out != nil {
		return out, nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model response")
	}

	out = nil
	if err := json.Unmarshal([]byte(text[start:end+1]), &out); err != nil {
		return nil, fmt.Errorf("invalid JSON in model response: %w", err)
	}
	if out == nil {
		return nil, fmt.Errorf("no JSON object in model response")
	}
	return out, nil
}
