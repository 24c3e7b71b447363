package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "простой https URL",
			url:  "https://shop.example.com",
			want: "shop-example-com",
		},
		{
			name: "схема не влияет на идентификатор",
			url:  "http://shop.example.com",
			want: "shop-example-com",
		},
		{
			name: "регистр приводится к нижнему",
			url:  "https://Shop.Example.COM",
			want: "shop-example-com",
		},
		{
			name: "завершающий слеш отбрасывается",
			url:  "https://shop.example.com/",
			want: "shop-example-com",
		},
		{
			name: "путь входит в идентификатор",
			url:  "https://example.com/store/eu",
			want: "example-com-store-eu",
		},
		{
			name: "последовательность спецсимволов схлопывается в один дефис",
			url:  "https://my--shop.example.com",
			want: "my-shop-example-com",
		},
		{
			name: "порт входит в идентификатор",
			url:  "http://localhost:8080",
			want: "localhost-8080",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StoreID(tt.url))
		})
	}
}

func TestStoreIDDeterministic(t *testing.T) {
	// Одинаковые URL всегда дают одинаковый идентификатор
	assert.Equal(t, StoreID("https://shop.example.com"), StoreID("https://shop.example.com"))
	assert.Equal(t, StoreID("https://shop.example.com"), StoreID("http://Shop.Example.com/"))
}

func TestNormalizeStoreURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "URL без схемы получает https",
			url:  "shop.example.com",
			want: "https://shop.example.com",
		},
		{
			name: "http поднимается до https",
			url:  "http://shop.example.com",
			want: "https://shop.example.com",
		},
		{
			name: "локальный хост остается на http",
			url:  "http://shop.local",
			want: "http://shop.local",
		},
		{
			name: "localhost остается на http",
			url:  "http://localhost:8080",
			want: "http://localhost:8080",
		},
		{
			name: "завершающий слеш отбрасывается",
			url:  "https://shop.example.com/",
			want: "https://shop.example.com",
		},
		{
			name: "параметры запроса отбрасываются",
			url:  "https://shop.example.com/?utm=1",
			want: "https://shop.example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeStoreURL(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
