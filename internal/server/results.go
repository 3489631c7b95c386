package server

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/trieql/leapstore/internal/engine"
)

// SPARQL 1.1 Results JSON: https://www.w3.org/TR/sparql11-results-json/

type resultsJSON struct {
	Head    headJSON `json:"head"`
	Results bodyJSON `json:"results"`
}

type headJSON struct {
	Vars []string `json:"vars"`
}

type bodyJSON struct {
	Bindings []map[string]bindingJSON `json:"bindings"`
}

type bindingJSON struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func formatResult(result *engine.QueryResult, format string) ([]byte, string, error) {
	switch format {
	case "csv":
		data, err := formatCSV(result)
		return data, "text/csv; charset=utf-8", err
	default:
		data, err := formatJSON(result)
		return data, "application/sparql-results+json; charset=utf-8", err
	}
}

func formatJSON(result *engine.QueryResult) ([]byte, error) {
	bindings := make([]map[string]bindingJSON, 0, len(result.Rows))
	for _, row := range result.Rows {
		b := make(map[string]bindingJSON, len(result.Vars))
		for i, v := range result.Vars {
			if i >= len(row) {
				continue
			}
			b[v] = termToBinding(row[i])
		}
		bindings = append(bindings, b)
	}
	out := resultsJSON{
		Head:    headJSON{Vars: result.Vars},
		Results: bodyJSON{Bindings: bindings},
	}
	return json.MarshalIndent(out, "", "  ")
}

// termToBinding classifies a decoded term by its leapstore serialization:
// "<...>" is a uri, everything else (quoted literals, bare identifiers) is
// reported as a plain literal since the store carries no datatype/language
// metadata beyond the raw N-Triples text.
func termToBinding(value string) bindingJSON {
	if strings.HasPrefix(value, "<") && strings.HasSuffix(value, ">") {
		return bindingJSON{Type: "uri", Value: strings.TrimSuffix(strings.TrimPrefix(value, "<"), ">")}
	}
	return bindingJSON{Type: "literal", Value: value}
}

func formatCSV(result *engine.QueryResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(result.Vars); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	for _, row := range result.Rows {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("writing row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
