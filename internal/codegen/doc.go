// Package codegen превращает Flow в исходный код на Rust.
//
// # Алгоритм
//
//  1. Индексы строятся один раз: узлы по ID, дети по parent_id,
//     входящие соединения по получателю. Ссылки на несуществующие
//     узлы дают ErrNodeNotFound.
//  2. Каждая function-definition, кроме function_name == "main",
//     становится async fn с аргументами из свойства arguments и
//     необязательным return_type.
//  3. Тело точки входа — дети контейнера main, а если его нет — все узлы
//     верхнего уровня, кроме function-definition.
//  4. Внутри области узлы сортируются engine.SortScope; start-node и
//     function-definition пропускаются, остальные передаются плагину
//     из plugins.Registry.
//
// Результат:
//
//	async fn my_func(x: i32) {
//	    println!("{:?}", x);
//	}
//
//	#[tokio::main]
//	async fn main() {
//	    my_func(42).await;
//	}
//
// Flow без узлов даёт EmptyProgram.
//
// # Ошибки
//
// Любая ошибка прерывает генерацию целиком. Ошибки узлов оборачиваются
// в *NodeError, ErrorKind возвращает стабильное имя вида ошибки
// для CLI, HTTP и метрик.
package codegen
