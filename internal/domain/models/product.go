package models

import "time"

// ProductType определяет тип товара в каталоге
type ProductType string

const (
	TypeSimple    ProductType = "simple"
	TypeVariable  ProductType = "variable"
	TypeVariation ProductType = "variation"
	TypeGrouped   ProductType = "grouped"
	TypeExternal  ProductType = "external"
)

// Dimensions представляет габариты товара
type Dimensions struct {
	Length string `json:"length,omitempty"`
	Width  string `json:"width,omitempty"`
	Height string `json:"height,omitempty"`
}

// Download представляет скачиваемый файл товара
type Download struct {
	Name string `json:"name"`
	File string `json:"file"`
}

// Attribute представляет атрибут товара.
// Таксономические атрибуты идентифицируются слагом с префиксом "pa_",
// произвольные - только именем.
type Attribute struct {
	Slug      string   `json:"slug,omitempty"`
	Name      string   `json:"name,omitempty"`
	Options   []string `json:"options"`
	Visible   bool     `json:"visible"`
	Variation bool     `json:"variation"`
}

// Product представляет товар локального каталога.
// Для вариаций заполняется ParentID, а часть полей (название, описание) не используется.
type Product struct {
	ID       int64       `db:"id" json:"id"`
	ParentID int64       `db:"parent_id" json:"parent_id,omitempty"`
	Type     ProductType `db:"type" json:"type"`
	Status   string      `db:"status" json:"status"`
	SKU      string      `db:"sku" json:"sku"`

	GlobalUniqueID   string `json:"global_unique_id,omitempty"`
	Name             string `json:"name"`
	Slug             string `json:"slug"`
	Description      string `json:"description,omitempty"`
	ShortDescription string `json:"short_description,omitempty"`

	Featured          bool   `json:"featured"`
	CatalogVisibility string `json:"catalog_visibility"`
	SoldIndividually  bool   `json:"sold_individually"`
	PurchaseNote      string `json:"purchase_note,omitempty"`
	MenuOrder         int    `json:"menu_order"`
	ReviewsAllowed    bool   `json:"reviews_allowed"`

	// Цены хранятся строками, как их отдает и принимает удаленный API
	RegularPrice string     `json:"regular_price,omitempty"`
	SalePrice    string     `json:"sale_price,omitempty"`
	SaleStart    *time.Time `json:"date_on_sale_from,omitempty"`
	SaleEnd      *time.Time `json:"date_on_sale_to,omitempty"`

	ManageStock    bool   `json:"manage_stock"`
	StockQuantity  *int   `json:"stock_quantity,omitempty"`
	Backorders     string `json:"backorders,omitempty"`
	LowStockAmount *int   `json:"low_stock_amount,omitempty"`
	StockStatus    string `json:"stock_status,omitempty"`

	Virtual       bool       `json:"virtual"`
	Weight        string     `json:"weight,omitempty"`
	Dimensions    Dimensions `json:"dimensions"`
	ShippingClass string     `json:"shipping_class,omitempty"`

	Downloadable   bool       `json:"downloadable"`
	DownloadLimit  int        `json:"download_limit,omitempty"`
	DownloadExpiry int        `json:"download_expiry,omitempty"`
	Downloads      []Download `json:"downloads,omitempty"`

	FeaturedImageID int64   `json:"featured_image_id,omitempty"`
	GalleryImageIDs []int64 `json:"gallery_image_ids,omitempty"`
	UpsellIDs       []int64 `json:"upsell_ids,omitempty"`
	CrossSellIDs    []int64 `json:"cross_sell_ids,omitempty"`
	// GroupedProductIDs - дети сгруппированного товара
	GroupedProductIDs []int64 `json:"grouped_product_ids,omitempty"`

	Attributes []Attribute `json:"attributes,omitempty"`
	// DefaultAttributes - выбор по умолчанию для вариативных товаров: слаг/имя атрибута -> опция
	DefaultAttributes map[string]string `json:"default_attributes,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// HasPricing сообщает, поддерживает ли тип товара прямые цены.
// Цены есть только у простых товаров и вариаций; вариативные и сгруппированные
// товары агрегируют цены дочерних записей.
func (p *Product) HasPricing() bool {
	return p.Type == TypeSimple || p.Type == TypeVariation
}

// Media представляет медиа-файл локальной библиотеки
type Media struct {
	ID  int64  `db:"id" json:"id"`
	URL string `db:"url" json:"url"`
}
