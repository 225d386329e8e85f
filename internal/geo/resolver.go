package geo

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kolna/incident_analysis_system/internal/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrUnresolvedLocation возвращается, когда нет ни явных координат, ни совпадения в газеттире
var ErrUnresolvedLocation = errors.New("location could not be resolved")

// maxReverseDistanceMeters - порог обратного поиска: дальше ближайшего центроида город считается неизвестным
const maxReverseDistanceMeters = 150000.0

// Resolver разрешает текст или явные координаты в конкретную (lat, lng, city) тройку
type Resolver struct {
	entries    []Entry
	normalized []string
}

// NewResolver создает резолвер поверх таблицы газеттира
func NewResolver(entries []Entry) *Resolver {
	r := &Resolver{entries: entries}
	r.normalized = make([]string, len(entries))
	for i, e := range entries {
		r.normalized[i] = r.normalize(e.Name)
	}
	return r
}

// Resolve разрешает локацию. Явные координаты имеют приоритет: город определяется
// обратным поиском по ближайшему центроиду. Без координат текст сканируется на
// известные названия мест, при неоднозначности побеждает самое длинное совпадение.
func (r *Resolver) Resolve(text string, lat, lng *float64) (models.ResolvedLocation, error) {
	if lat != nil && lng != nil {
		return models.ResolvedLocation{
			Latitude:  *lat,
			Longitude: *lng,
			City:      r.reverseCity(*lat, *lng),
		}, nil
	}

	needle := r.normalize(text)
	best := -1
	bestLen := 0
	for i, name := range r.normalized {
		if name == "" || !strings.Contains(needle, name) {
			continue
		}
		if l := utf8.RuneCountInString(name); l > bestLen {
			best = i
			bestLen = l
		}
	}
	if best < 0 {
		return models.ResolvedLocation{}, ErrUnresolvedLocation
	}

	e := r.entries[best]
	return models.ResolvedLocation{
		Latitude:  e.Latitude,
		Longitude: e.Longitude,
		City:      e.City,
	}, nil
}

// reverseCity возвращает город ближайшего центроида или "unknown", если все слишком далеко
func (r *Resolver) reverseCity(lat, lng float64) string {
	city := models.CityUnknown
	bestDist := maxReverseDistanceMeters
	for _, e := range r.entries {
		if d := Distance(lat, lng, e.Latitude, e.Longitude); d <= bestDist {
			bestDist = d
			city = e.City
		}
	}
	return city
}

// normalize приводит строку к форме для сравнения: нижний регистр и удаление
// диакритики (в том числе арабской огласовки) через NFD -> strip Mn -> NFC
func (r *Resolver) normalize(s string) string {
	// Цепочка строится на каждый вызов: transform.Transformer не потокобезопасен
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, s)
	if err != nil {
		folded = s
	}
	folded = strings.Map(func(c rune) rune {
		if c == 'ـ' { // татвил не несет смысла при сравнении
			return -1
		}
		switch c {
		case 'أ', 'إ', 'آ':
			return 'ا'
		}
		return c
	}, folded)
	return strings.ToLower(folded)
}
