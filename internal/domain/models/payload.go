package models

// Payload представляет тело запроса к удаленному API товаров.
// Свободная форма: состав полей зависит от типа товара и настроек исключений.
type Payload map[string]interface{}

// Clone возвращает копию верхнего уровня payload.
// Базовый payload разделяется между магазинами, а добавки
// (изображения, атрибуты, связанные товары) у каждого магазина свои,
// поэтому копии верхнего уровня достаточно: вложенные значения
// после сборки не мутируются.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p)+8)
	for k, v := range p {
		out[k] = v
	}
	return out
}
