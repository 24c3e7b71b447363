package models

import (
	"net/url"
	"strings"
	"time"
)

// TargetStore представляет целевой магазин, в который зеркалируется каталог
type TargetStore struct {
	// ID - производный идентификатор магазина. Вычисляется из URL и
	// нигде не хранится отдельно от него.
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	URL            string    `json:"url"`
	ConsumerKey    string    `json:"consumer_key"`
	ConsumerSecret string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// StoreID вычисляет идентификатор магазина из его URL.
// Схема отбрасывается, хост и путь приводятся к нижнему регистру,
// все прочие символы схлопываются в дефисы. Функция детерминирована:
// одинаковые URL всегда дают одинаковый идентификатор.
func StoreID(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if i := strings.Index(trimmed, "://"); i >= 0 {
		trimmed = trimmed[i+3:]
	}
	trimmed = strings.ToLower(strings.TrimRight(trimmed, "/"))

	var b strings.Builder
	b.Grow(len(trimmed))
	lastDash := true // подавляет ведущий дефис
	for _, r := range trimmed {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// NormalizeStoreURL приводит URL магазина к канонической форме:
// добавляет схему, поднимает http до https для нелокальных хостов
// и убирает завершающий слеш.
func NormalizeStoreURL(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", err
	}

	// Локальные стенды часто живут без TLS - их не трогаем
	if u.Scheme == "http" && !strings.Contains(u.Host, "local") {
		u.Scheme = "https"
	}

	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}
