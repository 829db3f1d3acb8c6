package ir

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"sigs.k8s.io/yaml"
)

// Parse разбирает YAML или JSON документ в Flow.
//
// JSON является подмножеством YAML, поэтому оба формата проходят через
// yaml.YAMLToJSON и дальше декодируются обычным encoding/json.
func Parse(data []byte) (*Flow, error) {
	return parse("", data)
}

// ParseReader читает документ целиком и разбирает его.
func ParseReader(r io.Reader) (*Flow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Msg: "read input", Err: err}
	}
	return parse("", data)
}

// ParseFile читает и разбирает файл с описанием Flow.
func ParseFile(path string) (*Flow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read flow file: %w", err)
	}
	return parse(path, data)
}

func parse(source string, data []byte) (*Flow, error) {
	if strings.TrimSpace(string(data)) == "" {
		return nil, &ParseError{Source: source, Msg: "empty document"}
	}

	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, &ParseError{Source: source, Msg: err.Error(), Err: err}
	}

	var flow Flow
	if err := json.Unmarshal(jsonData, &flow); err != nil {
		return nil, &ParseError{Source: source, Msg: err.Error(), Err: err}
	}

	if flow.Nodes == nil {
		flow.Nodes = []Node{}
	}
	if flow.Connections == nil {
		flow.Connections = []Connection{}
	}

	return &flow, nil
}
