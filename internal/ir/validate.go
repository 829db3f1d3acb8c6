package ir

import "fmt"

// Validate выполняет структурную валидацию Flow.
//
// Проверяет:
// - Наличие ID и типа у каждого узла
// - Уникальность ID
// - Что from/to всех соединений ссылаются на существующие узлы
// - Что parent_id указывает на function-definition
//
// Циклы здесь не ищутся: сортировка выполняется по областям видимости
// и циклы обнаруживает генератор.
func Validate(flow *Flow) error {
	if flow == nil {
		return nil
	}

	nodes := make(map[string]*Node, len(flow.Nodes))

	for i := range flow.Nodes {
		node := &flow.Nodes[i]

		if node.ID == "" {
			return NewValidationError("", "id",
				fmt.Sprintf("node %d has empty ID", i), ErrEmptyNodeID)
		}

		if _, exists := nodes[node.ID]; exists {
			return NewValidationError(node.ID, "id",
				fmt.Sprintf("duplicate node ID: %s", node.ID), ErrDuplicateNodeID)
		}

		if node.PluginType == "" {
			return NewValidationError(node.ID, "plugin_type",
				"node has empty plugin type", ErrEmptyPluginType)
		}

		nodes[node.ID] = node
	}

	for i := range flow.Connections {
		conn := &flow.Connections[i]

		if _, ok := nodes[conn.From]; !ok {
			return NewValidationError(conn.To, "from",
				fmt.Sprintf("connection %d references unknown node: %s", i, conn.From), ErrDanglingConnection)
		}
		if _, ok := nodes[conn.To]; !ok {
			return NewValidationError(conn.From, "to",
				fmt.Sprintf("connection %d references unknown node: %s", i, conn.To), ErrDanglingConnection)
		}
	}

	for i := range flow.Nodes {
		node := &flow.Nodes[i]
		if node.IsTopLevel() {
			continue
		}

		parent, ok := nodes[node.Parent()]
		if !ok {
			return NewValidationError(node.ID, "parent_id",
				fmt.Sprintf("parent %s does not exist", node.Parent()), ErrInvalidParent)
		}
		if !parent.IsFunctionDefinition() {
			return NewValidationError(node.ID, "parent_id",
				fmt.Sprintf("parent %s has type %s", parent.ID, parent.PluginType), ErrInvalidParent)
		}
	}

	return nil
}
