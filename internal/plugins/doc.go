// Package plugins содержит правила генерации кода для типов узлов Flow.
//
// # Интерфейс Plugin
//
// Каждый тип узла реализует интерфейс Plugin:
//
//	type Plugin interface {
//	    Type() string
//	    Aliases() []string
//	    Descriptor() Descriptor
//	    Render(node *ir.Node, incoming []ir.Connection, rc *RenderContext) (string, error)
//	}
//
// Render получает узел, входящие в него соединения (в порядке объявления)
// и контекст генерации. Возвращает код без отступов: отступы и сборку
// тела функции делает codegen.
//
// # Registry
//
//	registry := plugins.DefaultRegistry()
//	p, err := registry.Get("legacy_code") // алиасы тоже работают
//	if errors.Is(err, plugins.ErrUnknownPluginType) {
//	    // неизвестный тип — компиляция прерывается
//	}
//
// Новые типы узлов регистрируются через Register без изменений в генераторе.
//
// # Стандартные плагины
//
//   - call-function       — let x = f(a, b).await;
//   - legacy-code         — код из свойства code как есть
//   - debug               — println!("label: {:?}", x);
//   - start-node          — ничего не выводит
//   - function-definition — ничего не выводит, сигнатуру строит codegen
//
// # Ошибки
//
// Ошибки свойств возвращаются как *PropertyError с именем свойства
// (или аргумента) и одной из базовых ошибок: ErrMissingProperty,
// ErrUnmappedArgument, ErrInvalidProperty.
package plugins
