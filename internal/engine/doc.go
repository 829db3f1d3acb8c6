// Package engine содержит ядро компилятора flow.
//
// Включает:
//   - dag.go      — построение DAG области и топологическая сортировка (Кан)
//   - template.go — разбор и рендеринг шаблонов ({{name}}, {{#if}}, {{#each}})
//
// Engine отвечает за порядок выполнения узлов внутри области видимости
// и за материализацию текста отдельных узлов. Обход иерархии и выбор
// правил генерации находятся в пакете codegen.
package engine
