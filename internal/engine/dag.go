package engine

import (
	"container/heap"

	"github.com/shaiso/Flust/internal/ir"
)

// Node — узел в DAG области видимости.
type Node struct {
	// ID — идентификатор узла Flow.
	ID string

	// Index — позиция узла в порядке объявления (tie-break сортировки).
	Index int

	// InDegree — количество входящих рёбер внутри области.
	InDegree int

	// DependsOn — узлы, от которых зависит этот узел.
	DependsOn []*Node

	// Dependents — узлы, которые зависят от этого узла.
	Dependents []*Node
}

// DAG — направленный ациклический граф одной области видимости
// (тела функции или точки входа).
type DAG struct {
	// Nodes — все узлы графа (nodeID → Node).
	Nodes map[string]*Node

	// RootNodes — узлы без входящих рёбер, в порядке объявления.
	RootNodes []*Node

	// Order — топологически отсортированный список узлов.
	Order []*Node

	// declared — узлы в порядке объявления.
	declared []*Node
}

// BuildDAG строит DAG по набору ID и соединениям.
//
// ids задаёт область и порядок объявления. Соединения, у которых хотя бы
// один конец лежит вне области, игнорируются: сортировка никогда не
// смотрит на рёбра между областями.
func BuildDAG(ids []string, conns []ir.Connection) (*DAG, error) {
	dag := &DAG{
		Nodes:     make(map[string]*Node, len(ids)),
		RootNodes: make([]*Node, 0),
		declared:  make([]*Node, 0, len(ids)),
	}

	// Первый проход: создаём все узлы
	for _, id := range ids {
		if _, exists := dag.Nodes[id]; exists {
			continue
		}
		node := &Node{
			ID:         id,
			Index:      len(dag.declared),
			DependsOn:  make([]*Node, 0),
			Dependents: make([]*Node, 0),
		}
		dag.Nodes[id] = node
		dag.declared = append(dag.declared, node)
	}

	// Второй проход: связываем узлы соединениями внутри области
	for i := range conns {
		from, okFrom := dag.Nodes[conns[i].From]
		to, okTo := dag.Nodes[conns[i].To]
		if !okFrom || !okTo {
			continue
		}
		dag.addEdge(from, to)
	}

	dag.findRootNodes()

	// Проверяем на циклы и строим топологический порядок
	order, err := dag.topologicalSort()
	if err != nil {
		return nil, err
	}
	dag.Order = order

	return dag, nil
}

// SortScope возвращает ID узлов области в порядке выполнения.
func SortScope(ids []string, conns []ir.Connection) ([]string, error) {
	dag, err := BuildDAG(ids, conns)
	if err != nil {
		return nil, err
	}
	return dag.OrderIDs(), nil
}

// addEdge добавляет ребро между узлами.
// Дополнительно проверяет на дубликаты, чтобы избежать двойного учета InDegree.
func (d *DAG) addEdge(from, to *Node) {
	for _, dep := range to.DependsOn {
		if dep.ID == from.ID {
			return // уже связаны
		}
	}
	from.Dependents = append(from.Dependents, to)
	to.DependsOn = append(to.DependsOn, from)
	to.InDegree++
}

// findRootNodes находит узлы без входящих рёбер.
func (d *DAG) findRootNodes() {
	d.RootNodes = make([]*Node, 0)
	for _, node := range d.declared {
		if node.InDegree == 0 {
			d.RootNodes = append(d.RootNodes, node)
		}
	}
}

// topologicalSort выполняет топологическую сортировку (алгоритм Кана).
//
// Из готовых узлов всегда выбирается объявленный раньше, поэтому порядок
// детерминирован. Возвращает ошибку, если обнаружен цикл.
func (d *DAG) topologicalSort() ([]*Node, error) {
	// Копируем inDegree, чтобы не модифицировать оригинал
	inDegree := make(map[string]int, len(d.Nodes))
	for id, node := range d.Nodes {
		inDegree[id] = node.InDegree
	}

	queue := make(readyQueue, len(d.RootNodes))
	copy(queue, d.RootNodes)
	heap.Init(&queue)

	order := make([]*Node, 0, len(d.Nodes))

	for queue.Len() > 0 {
		node := heap.Pop(&queue).(*Node)
		order = append(order, node)

		// Уменьшаем inDegree у зависимых узлов
		for _, dependent := range node.Dependents {
			inDegree[dependent.ID]--
			if inDegree[dependent.ID] == 0 {
				heap.Push(&queue, dependent)
			}
		}
	}

	// Если не все узлы обработаны — есть цикл
	if len(order) != len(d.Nodes) {
		remaining := make([]string, 0, len(d.Nodes)-len(order))
		for _, node := range d.declared {
			if inDegree[node.ID] > 0 {
				remaining = append(remaining, node.ID)
			}
		}
		return nil, &CycleError{NodeIDs: remaining}
	}

	return order, nil
}

// OrderIDs возвращает ID узлов в топологическом порядке.
func (d *DAG) OrderIDs() []string {
	ids := make([]string, len(d.Order))
	for i, node := range d.Order {
		ids[i] = node.ID
	}
	return ids
}

// readyQueue — min-heap готовых узлов по порядку объявления.
type readyQueue []*Node

func (q readyQueue) Len() int           { return len(q) }
func (q readyQueue) Less(i, j int) bool { return q[i].Index < q[j].Index }
func (q readyQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *readyQueue) Push(x any) {
	*q = append(*q, x.(*Node))
}

func (q *readyQueue) Pop() any {
	old := *q
	n := len(old)
	node := old[n-1]
	*q = old[:n-1]
	return node
}
