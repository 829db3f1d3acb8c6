package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Известные типы плагинов.
const (
	PluginFunctionDefinition = "function-definition"
	PluginStartNode          = "start-node"
	PluginCallFunction       = "call-function"
	PluginLegacyCode         = "legacy-code"
	PluginLegacyCodeAlias    = "legacy_code"
	PluginDebug              = "debug"
)

// EntryFunctionName — имя function-definition, чьё тело становится точкой входа.
const EntryFunctionName = "main"

// Flow — единица компиляции: узлы и соединения между ними.
//
// Flow строится один раз при разборе документа и дальше только читается.
// Порядок Nodes важен: он используется как tie-break при сортировке.
type Flow struct {
	// Nodes — узлы графа в порядке объявления.
	Nodes []Node `json:"nodes"`

	// Connections — направленные рёбра в порядке объявления.
	Connections []Connection `json:"connections"`
}

// Node — вершина графа (блок визуального редактора).
type Node struct {
	// ID — уникальный идентификатор узла в рамках Flow.
	ID string `json:"id"`

	// PluginType — тег плагина, выбирающий правило генерации
	// ("call-function", "debug", ...).
	PluginType string `json:"plugin_type"`

	// Label — отображаемое имя. Генератором не используется.
	Label *string `json:"label,omitempty"`

	// Properties — свойства узла, схема зависит от PluginType.
	Properties map[string]any `json:"properties,omitempty"`

	// ParentID — ссылка на function-definition, в тело которой входит узел.
	// nil — узел верхнего уровня.
	ParentID *string `json:"parent_id,omitempty"`
}

// IsTopLevel возвращает true для узлов без родителя.
func (n *Node) IsTopLevel() bool {
	return n.ParentID == nil || *n.ParentID == ""
}

// Parent возвращает ID родителя или пустую строку.
func (n *Node) Parent() string {
	if n.ParentID == nil {
		return ""
	}
	return *n.ParentID
}

// IsFunctionDefinition проверяет, является ли узел контейнером функции.
func (n *Node) IsFunctionDefinition() bool {
	return n.PluginType == PluginFunctionDefinition
}

// nodeFields — ключи верхнего уровня, которые не попадают в Properties.
var nodeFields = map[string]bool{
	"id":          true,
	"plugin_type": true,
	"type":        true,
	"label":       true,
	"properties":  true,
	"parent_id":   true,
	"parentNode":  true,
}

// UnmarshalJSON разбирает узел.
//
// Поддерживает старый формат ("type" вместо "plugin_type", "parentNode"
// вместо "parent_id"). Ключ и алиас с разными значениями дают
// ErrConflictingAlias. Все неизвестные поля верхнего уровня переносятся
// в Properties; явный объект "properties" имеет приоритет.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var node Node
	if v, ok := raw["id"]; ok {
		if err := json.Unmarshal(v, &node.ID); err != nil {
			return fmt.Errorf("node id: %w", err)
		}
	}

	if err := decodeAliased(raw, "plugin_type", "type", &node.PluginType); err != nil {
		return fmt.Errorf("node %s: %w", node.ID, err)
	}

	if v, ok := raw["label"]; ok {
		if err := json.Unmarshal(v, &node.Label); err != nil {
			return fmt.Errorf("node %s: label: %w", node.ID, err)
		}
	}

	if err := decodeAliased(raw, "parent_id", "parentNode", &node.ParentID); err != nil {
		return fmt.Errorf("node %s: %w", node.ID, err)
	}
	if node.ParentID != nil && *node.ParentID == "" {
		node.ParentID = nil
	}

	node.Properties = make(map[string]any)

	// Сначала лишние поля верхнего уровня, затем явные properties поверх них
	for key, v := range raw {
		if nodeFields[key] {
			continue
		}
		value, err := decodeValue(v)
		if err != nil {
			return fmt.Errorf("node %s: %s: %w", node.ID, key, err)
		}
		node.Properties[key] = value
	}

	if v, ok := raw["properties"]; ok && !isNull(v) {
		var props map[string]json.RawMessage
		if err := json.Unmarshal(v, &props); err != nil {
			return fmt.Errorf("node %s: properties: %w", node.ID, err)
		}
		for key, pv := range props {
			value, err := decodeValue(pv)
			if err != nil {
				return fmt.Errorf("node %s: properties.%s: %w", node.ID, key, err)
			}
			node.Properties[key] = value
		}
	}

	*n = node
	return nil
}

// decodeAliased декодирует поле, заданное основным ключом или алиасом.
// Оба ключа с разными значениями дают ErrConflictingAlias.
func decodeAliased(raw map[string]json.RawMessage, key, alias string, dst any) error {
	v, hasKey := raw[key]
	a, hasAlias := raw[alias]

	switch {
	case hasKey && hasAlias:
		if !bytes.Equal(bytes.TrimSpace(v), bytes.TrimSpace(a)) {
			return fmt.Errorf("%w: %s=%s, %s=%s", ErrConflictingAlias, key, v, alias, a)
		}
	case hasAlias:
		v, key = a, alias
	case !hasKey:
		return nil
	}

	if err := json.Unmarshal(v, dst); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

// decodeValue декодирует значение свойства, сохраняя числа как json.Number.
func decodeValue(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func isNull(data json.RawMessage) bool {
	return strings.TrimSpace(string(data)) == "null"
}

// ConnectionType — тип соединения. Информационный, на порядок не влияет.
type ConnectionType string

const (
	// ConnectionSimple — обычное соединение (порядок выполнения).
	ConnectionSimple ConnectionType = "Simple"

	// ConnectionFunctionCall — соединение, передающее аргументы в call-function.
	ConnectionFunctionCall ConnectionType = "FunctionCall"
)

// UnmarshalJSON принимает "simple"/"Simple" и "function_call"/"FunctionCall".
func (t *ConnectionType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	ct, err := ParseConnectionType(s)
	if err != nil {
		return err
	}
	*t = ct
	return nil
}

// ParseConnectionType нормализует строковое представление типа соединения.
// Пустая строка — ConnectionSimple.
func ParseConnectionType(s string) (ConnectionType, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", "")) {
	case "", "simple":
		return ConnectionSimple, nil
	case "functioncall":
		return ConnectionFunctionCall, nil
	default:
		return "", fmt.Errorf("unknown connection type: %q", s)
	}
}

// Connection — направленное ребро между узлами.
type Connection struct {
	// From — ID узла-источника.
	From string `json:"from"`

	// To — ID узла-приёмника.
	To string `json:"to"`

	// ConnectionType — тип соединения (Simple по умолчанию).
	ConnectionType ConnectionType `json:"connection_type,omitempty"`

	// VariableMapping — имя аргумента → выражение на стороне вызывающего.
	// Имеет смысл только для соединений, входящих в call-function.
	VariableMapping map[string]string `json:"variable_mapping,omitempty"`
}

// Type возвращает тип соединения с учётом значения по умолчанию.
func (c *Connection) Type() ConnectionType {
	if c.ConnectionType == "" {
		return ConnectionSimple
	}
	return c.ConnectionType
}

// FunctionArgument — аргумент функции из свойства "arguments".
type FunctionArgument struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}
