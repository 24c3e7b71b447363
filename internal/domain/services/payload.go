package services

import (
	"time"

	"github.com/athebyme/storesync-platform/sync-service/internal/domain/models"
)

// ExclusionSet - набор имен полей, которые не должны попадать в payload.
// Имена-группы из настроек раскрываются в конкретные ключи payload
// при создании набора.
type ExclusionSet map[string]struct{}

// fieldAliases раскрывает имя настройки в группу ключей payload
var fieldAliases = map[string][]string{
	"stock":            {"manage_stock", "stock_quantity", "backorders", "low_stock_amount", "stock_status"},
	"sale_price_dates": {"date_on_sale_from", "date_on_sale_to"},
	"enable_reviews":   {"reviews_allowed"},
}

// NewExclusionSet строит набор исключений из списка имен полей
func NewExclusionSet(names []string) ExclusionSet {
	set := make(ExclusionSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
		for _, key := range fieldAliases[name] {
			set[key] = struct{}{}
		}
	}
	return set
}

// Has сообщает, исключено ли поле с данным именем
func (s ExclusionSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// BuildBasePayload собирает базовый payload товара для удаленного API.
// Чистая функция: никаких сетевых вызовов и побочных эффектов.
// Базовый payload общий для всех магазинов; добавки, зависящие от магазина
// (изображения, атрибуты, связанные товары), делаются поверх копии.
func BuildBasePayload(p *models.Product, excluded ExclusionSet) models.Payload {
	payload := models.Payload{}
	set := func(key string, value interface{}) {
		if excluded.Has(key) {
			return
		}
		payload[key] = value
	}

	// У вариации нет собственного имени и типа - их задает родитель
	if p.Type != models.TypeVariation {
		set("name", p.Name)
		set("slug", p.Slug)
		set("type", string(p.Type))
	}
	set("status", p.Status)
	set("description", p.Description)
	set("short_description", p.ShortDescription)
	set("featured", p.Featured)
	set("catalog_visibility", p.CatalogVisibility)
	set("sold_individually", p.SoldIndividually)
	set("purchase_note", p.PurchaseNote)
	set("menu_order", p.MenuOrder)
	set("reviews_allowed", p.ReviewsAllowed)

	addPricing(p, set)
	addStock(p, set)
	addShipping(p, set)
	addDownloads(p, set)

	return payload
}

// addPricing добавляет ценовой блок. Прямые цены есть только у простых
// товаров и вариаций; у вариативных и сгруппированных цены агрегируются
// из дочерних записей, поэтому блок не добавляется.
func addPricing(p *models.Product, set func(string, interface{})) {
	if !p.HasPricing() {
		return
	}

	set("regular_price", p.RegularPrice)
	set("sale_price", p.SalePrice)
	if p.SaleStart != nil {
		set("date_on_sale_from", p.SaleStart.Format(time.RFC3339))
	}
	if p.SaleEnd != nil {
		set("date_on_sale_to", p.SaleEnd.Format(time.RFC3339))
	}
}

func addStock(p *models.Product, set func(string, interface{})) {
	set("sku", p.SKU)
	if p.GlobalUniqueID != "" {
		set("global_unique_id", p.GlobalUniqueID)
	}

	set("manage_stock", p.ManageStock)
	if p.ManageStock {
		if p.StockQuantity != nil {
			set("stock_quantity", *p.StockQuantity)
		}
		set("backorders", p.Backorders)
		if p.LowStockAmount != nil {
			set("low_stock_amount", *p.LowStockAmount)
		}
	}
	set("stock_status", p.StockStatus)
}

// addShipping добавляет блок доставки. Виртуальный товар не доставляется:
// вместо веса, габаритов и класса доставки ставится флаг is_virtual.
// Для невиртуальных товаров все три ключа присутствуют всегда,
// даже с пустыми значениями.
func addShipping(p *models.Product, set func(string, interface{})) {
	if p.Virtual {
		set("is_virtual", true)
		return
	}

	set("weight", p.Weight)
	set("dimensions", map[string]string{
		"length": p.Dimensions.Length,
		"width":  p.Dimensions.Width,
		"height": p.Dimensions.Height,
	})
	set("shipping_class", p.ShippingClass)
}

func addDownloads(p *models.Product, set func(string, interface{})) {
	if !p.Downloadable {
		return
	}

	set("downloadable", true)
	set("download_limit", p.DownloadLimit)
	set("download_expiry", p.DownloadExpiry)

	downloads := make([]map[string]interface{}, 0, len(p.Downloads))
	for _, d := range p.Downloads {
		downloads = append(downloads, map[string]interface{}{
			"file": d.File,
			"name": d.Name,
		})
	}
	set("downloads", downloads)
}
