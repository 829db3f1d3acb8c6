package ir

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Has проверяет наличие свойства.
func (n *Node) Has(key string) bool {
	_, ok := n.Properties[key]
	return ok
}

// GetString извлекает свойство как строку.
// Возвращает "" и false, если свойство отсутствует или равно null.
func (n *Node) GetString(key string) (string, bool) {
	v, ok := n.Properties[key]
	if !ok || v == nil {
		return "", false
	}
	return Stringify(v), true
}

// GetBool извлекает булево свойство. Строки "true"/"false" тоже принимаются.
func (n *Node) GetBool(key string, defaultVal bool) bool {
	v, ok := n.Properties[key]
	if !ok || v == nil {
		return defaultVal
	}

	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(b); err == nil {
			return parsed
		}
	}
	return defaultVal
}

// Arguments извлекает упорядоченный список аргументов {name, type}.
//
// Свойство может быть массивом объектов либо строкой с JSON-массивом
// (так его сохраняет редактор).
func (n *Node) Arguments(key string) ([]FunctionArgument, error) {
	v, ok := n.Properties[key]
	if !ok || v == nil {
		return nil, nil
	}

	var data []byte
	switch raw := v.(type) {
	case string:
		if raw == "" {
			return nil, nil
		}
		data = []byte(raw)
	default:
		b, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", key, err)
		}
		data = b
	}

	var args []FunctionArgument
	if err := json.Unmarshal(data, &args); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return args, nil
}

// StringMap возвращает свойства узла в виде строкового контекста
// для шаблонов.
func (n *Node) StringMap() map[string]string {
	ctx := make(map[string]string, len(n.Properties))
	for key, v := range n.Properties {
		ctx[key] = Stringify(v)
	}
	return ctx
}

// Stringify приводит значение свойства к строке:
// строки как есть, числа десятичным текстом, bool как true/false,
// null как пустая строка, массивы и объекты — компактный JSON.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
