package geo

// Entry - запись газеттира: название места, город и репрезентативные координаты
type Entry struct {
	Name      string
	City      string
	Latitude  float64
	Longitude float64
}

// DefaultGazetteer возвращает встроенную таблицу городов и районов Саудовской Аравии.
// Координаты районов репрезентативные (центр района), не точные границы.
func DefaultGazetteer() []Entry {
	return []Entry{
		// Города
		{Name: "الرياض", City: "الرياض", Latitude: 24.7136, Longitude: 46.6753},
		{Name: "جدة", City: "جدة", Latitude: 21.4858, Longitude: 39.1925},
		{Name: "مكة", City: "مكة", Latitude: 21.3891, Longitude: 39.8579},
		{Name: "مكة المكرمة", City: "مكة", Latitude: 21.3891, Longitude: 39.8579},
		{Name: "المدينة المنورة", City: "المدينة المنورة", Latitude: 24.5247, Longitude: 39.5692},
		{Name: "الدمام", City: "الدمام", Latitude: 26.4207, Longitude: 50.0888},
		{Name: "الخبر", City: "الخبر", Latitude: 26.2172, Longitude: 50.1971},
		{Name: "الطائف", City: "الطائف", Latitude: 21.2703, Longitude: 40.4158},
		{Name: "تبوك", City: "تبوك", Latitude: 28.3838, Longitude: 36.5550},
		{Name: "أبها", City: "أبها", Latitude: 18.2465, Longitude: 42.5117},
		{Name: "riyadh", City: "الرياض", Latitude: 24.7136, Longitude: 46.6753},
		{Name: "jeddah", City: "جدة", Latitude: 21.4858, Longitude: 39.1925},
		{Name: "makkah", City: "مكة", Latitude: 21.3891, Longitude: 39.8579},
		{Name: "mecca", City: "مكة", Latitude: 21.3891, Longitude: 39.8579},
		{Name: "dammam", City: "الدمام", Latitude: 26.4207, Longitude: 50.0888},

		// Районы Эр-Рияда
		{Name: "العليا", City: "الرياض", Latitude: 24.6949, Longitude: 46.6856},
		{Name: "الملز", City: "الرياض", Latitude: 24.6640, Longitude: 46.7346},
		{Name: "النسيم", City: "الرياض", Latitude: 24.7445, Longitude: 46.8100},
		{Name: "السليمانية", City: "الرياض", Latitude: 24.7065, Longitude: 46.7110},
		{Name: "الدرعية", City: "الرياض", Latitude: 24.7370, Longitude: 46.5756},

		// Районы Джидды
		{Name: "الزهراء", City: "جدة", Latitude: 21.5810, Longitude: 39.1409},
		{Name: "الحمراء", City: "جدة", Latitude: 21.5163, Longitude: 39.1605},
		{Name: "الروضة", City: "جدة", Latitude: 21.5662, Longitude: 39.1489},
		{Name: "البلد", City: "جدة", Latitude: 21.4836, Longitude: 39.1862},

		// Районы Мекки
		{Name: "العزيزية", City: "مكة", Latitude: 21.4024, Longitude: 39.8678},
		{Name: "الشوقية", City: "مكة", Latitude: 21.3775, Longitude: 39.7962},
		{Name: "المسفلة", City: "مكة", Latitude: 21.4150, Longitude: 39.8200},
	}
}
