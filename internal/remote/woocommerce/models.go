package woocommerce

// Product - представление товара в удаленном магазине
type Product struct {
	ID        int64   `json:"id"`
	SKU       string  `json:"sku"`
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Status    string  `json:"status"`
	Permalink string  `json:"permalink,omitempty"`
	Images    []Image `json:"images,omitempty"`
}

// Image - изображение товара в удаленном магазине
type Image struct {
	ID  int64  `json:"id"`
	Src string `json:"src"`
}

// Attribute - глобальный атрибут удаленного магазина.
// Слаг таксономического атрибута имеет префикс "pa_".
type Attribute struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Variation - вариация товара в удаленном магазине
type Variation struct {
	ID  int64  `json:"id"`
	SKU string `json:"sku"`
}

// VariationBatch - пакетная операция над вариациями товара.
// Создание, обновление и удаление выполняются одним запросом.
type VariationBatch struct {
	Create []map[string]interface{} `json:"create,omitempty"`
	Update []map[string]interface{} `json:"update,omitempty"`
	Delete []int64                  `json:"delete,omitempty"`
}

// IsEmpty сообщает, что пакет не содержит ни одной операции
func (b *VariationBatch) IsEmpty() bool {
	return len(b.Create) == 0 && len(b.Update) == 0 && len(b.Delete) == 0
}

// BatchItem - результат одной операции из пакета.
// При частичном сбое удаленный API возвращает 200, а ошибка
// приходит внутри элемента.
type BatchItem struct {
	ID    int64      `json:"id"`
	SKU   string     `json:"sku,omitempty"`
	Error *ErrorBody `json:"error,omitempty"`
}

// VariationBatchResult - ответ удаленного API на пакетную операцию
type VariationBatchResult struct {
	Create []BatchItem `json:"create,omitempty"`
	Update []BatchItem `json:"update,omitempty"`
	Delete []BatchItem `json:"delete,omitempty"`
}

// ErrorBody - тело ошибки удаленного API
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
