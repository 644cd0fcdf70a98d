package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sakif/brewlog/internal/model"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func number(f *float64) string {
	if f == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *f)
}

func recordTypeLabel(t model.RecordType) string {
	if t == model.RecordTypeEspresso {
		return "意式"
	}
	return "手冲"
}
