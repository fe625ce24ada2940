package geo

// cell is one populated place in the offline lookup table. Region is the
// admin1 name in local form.
type cell struct {
	Lat, Lon    float64
	CountryCode string
	Region      string
	City        string
}

// cells is a compact extract of populated places. Coverage is densest for
// Italy, where most of the catalogs this tool processes are shot, and keeps
// one anchor per major metro elsewhere. The nearest-cell search bounds the
// match distance, so sparse coverage yields a null result rather than a
// wrong city.
var cells = []cell{
	// Italy
	{45.0703, 7.6869, "IT", "Piemonte", "Torino"},
	{45.4642, 9.1900, "IT", "Lombardia", "Milano"},
	{45.6983, 9.6773, "IT", "Lombardia", "Bergamo"},
	{45.5416, 10.2118, "IT", "Lombardia", "Brescia"},
	{46.0679, 11.1211, "IT", "Trentino-Alto Adige", "Trento"},
	{46.4983, 11.3548, "IT", "Trentino-Alto Adige", "Bolzano"},
	{45.4384, 10.9916, "IT", "Veneto", "Verona"},
	{45.4064, 11.8768, "IT", "Veneto", "Padova"},
	{45.4408, 12.3155, "IT", "Veneto", "Venezia"},
	{45.6495, 13.7768, "IT", "Friuli-Venezia Giulia", "Trieste"},
	{44.4056, 8.9463, "IT", "Liguria", "Genova"},
	{44.1089, 9.7306, "IT", "Liguria", "La Spezia"},
	{44.4949, 11.3426, "IT", "Emilia-Romagna", "Bologna"},
	{44.8015, 10.3279, "IT", "Emilia-Romagna", "Parma"},
	{44.0575, 12.5653, "IT", "Emilia-Romagna", "Rimini"},
	{43.7696, 11.2558, "IT", "Toscana", "Firenze"},
	{43.7228, 10.4017, "IT", "Toscana", "Pisa"},
	{43.3188, 11.3308, "IT", "Toscana", "Siena"},
	{42.8531, 10.5266, "IT", "Toscana", "Isola d'Elba"},
	{43.1122, 12.3888, "IT", "Umbria", "Perugia"},
	{42.5636, 12.6427, "IT", "Umbria", "Terni"},
	{43.6158, 13.5189, "IT", "Marche", "Ancona"},
	{41.9028, 12.4964, "IT", "Lazio", "Roma"},
	{42.3498, 13.3995, "IT", "Abruzzo", "L'Aquila"},
	{40.8518, 14.2681, "IT", "Campania", "Napoli"},
	{40.6824, 14.7681, "IT", "Campania", "Salerno"},
	{41.1171, 16.8719, "IT", "Puglia", "Bari"},
	{40.3515, 18.1750, "IT", "Puglia", "Lecce"},
	{40.6395, 15.8052, "IT", "Basilicata", "Potenza"},
	{38.9098, 16.5877, "IT", "Calabria", "Catanzaro"},
	{38.1157, 13.3615, "IT", "Sicilia", "Palermo"},
	{37.5079, 15.0830, "IT", "Sicilia", "Catania"},
	{36.9401, 14.7344, "IT", "Sicilia", "Ragusa"},
	{39.2238, 9.1217, "IT", "Sardegna", "Cagliari"},
	{40.7259, 8.5557, "IT", "Sardegna", "Sassari"},

	// Western Europe
	{48.8566, 2.3522, "FR", "Ile-de-France", "Paris"},
	{43.2965, 5.3698, "FR", "Provence-Alpes-Cote d'Azur", "Marseille"},
	{45.7640, 4.8357, "FR", "Auvergne-Rhone-Alpes", "Lyon"},
	{43.7102, 7.2620, "FR", "Provence-Alpes-Cote d'Azur", "Nice"},
	{40.4168, -3.7038, "ES", "Comunidad de Madrid", "Madrid"},
	{41.3874, 2.1686, "ES", "Cataluna", "Barcelona"},
	{37.3891, -5.9845, "ES", "Andalucia", "Sevilla"},
	{38.7223, -9.1393, "PT", "Lisboa", "Lisboa"},
	{41.1579, -8.6291, "PT", "Porto", "Porto"},
	{51.5074, -0.1278, "GB", "England", "London"},
	{55.9533, -3.1883, "GB", "Scotland", "Edinburgh"},
	{53.4808, -2.2426, "GB", "England", "Manchester"},
	{53.3498, -6.2603, "IE", "Leinster", "Dublin"},
	{52.5200, 13.4050, "DE", "Berlin", "Berlin"},
	{48.1351, 11.5820, "DE", "Bayern", "Munchen"},
	{50.1109, 8.6821, "DE", "Hessen", "Frankfurt am Main"},
	{53.5511, 9.9937, "DE", "Hamburg", "Hamburg"},
	{47.3769, 8.5417, "CH", "Zurich", "Zurich"},
	{46.2044, 6.1432, "CH", "Geneve", "Geneve"},
	{46.0037, 8.9511, "CH", "Ticino", "Lugano"},
	{48.2082, 16.3738, "AT", "Wien", "Wien"},
	{47.2692, 11.4041, "AT", "Tirol", "Innsbruck"},
	{52.3676, 4.9041, "NL", "Noord-Holland", "Amsterdam"},
	{50.8503, 4.3517, "BE", "Brussel", "Brussel"},
	{49.6116, 6.1319, "LU", "Luxembourg", "Luxembourg"},
	{43.7384, 7.4246, "MC", "", "Monaco"},

	// Northern and Eastern Europe
	{59.3293, 18.0686, "SE", "Stockholm", "Stockholm"},
	{59.9139, 10.7522, "NO", "Oslo", "Oslo"},
	{55.6761, 12.5683, "DK", "Hovedstaden", "Kobenhavn"},
	{60.1699, 24.9384, "FI", "Uusimaa", "Helsinki"},
	{64.1466, -21.9426, "IS", "Hofudborgarsvaedi", "Reykjavik"},
	{52.2297, 21.0122, "PL", "Mazowieckie", "Warszawa"},
	{50.0647, 19.9450, "PL", "Malopolskie", "Krakow"},
	{50.0755, 14.4378, "CZ", "Praha", "Praha"},
	{48.1486, 17.1077, "SK", "Bratislavsky kraj", "Bratislava"},
	{47.4979, 19.0402, "HU", "Budapest", "Budapest"},
	{44.4268, 26.1025, "RO", "Bucuresti", "Bucuresti"},
	{42.6977, 23.3219, "BG", "Sofia", "Sofia"},
	{45.8150, 15.9819, "HR", "Grad Zagreb", "Zagreb"},
	{46.0569, 14.5058, "SI", "Osrednjeslovenska", "Ljubljana"},
	{44.7866, 20.4489, "RS", "Beograd", "Beograd"},
	{37.9838, 23.7275, "GR", "Attiki", "Athina"},
	{50.4501, 30.5234, "UA", "Kyiv", "Kyiv"},
	{59.4370, 24.7536, "EE", "Harjumaa", "Tallinn"},
	{56.9496, 24.1052, "LV", "Riga", "Riga"},
	{54.6872, 25.2797, "LT", "Vilniaus apskritis", "Vilnius"},
	{35.8989, 14.5146, "MT", "", "Valletta"},

	// Africa
	{30.0444, 31.2357, "EG", "Al Qahirah", "Cairo"},
	{36.8065, 10.1815, "TN", "Tunis", "Tunis"},
	{33.5731, -7.5898, "MA", "Casablanca-Settat", "Casablanca"},
	{36.7538, 3.0588, "DZ", "Alger", "Alger"},
	{-1.2921, 36.8219, "KE", "Nairobi", "Nairobi"},
	{-6.7924, 39.2083, "TZ", "Dar es Salaam", "Dar es Salaam"},
	{-3.3869, 36.6830, "TZ", "Arusha", "Arusha"},
	{9.0054, 38.7636, "ET", "Addis Ababa", "Addis Ababa"},
	{-33.9249, 18.4241, "ZA", "Western Cape", "Cape Town"},
	{-26.2041, 28.0473, "ZA", "Gauteng", "Johannesburg"},
	{-24.9916, 31.5547, "ZA", "Mpumalanga", "Kruger Park"},
	{-22.5609, 17.0658, "NA", "Khomas", "Windhoek"},
	{-17.9243, 25.8567, "ZM", "Southern", "Livingstone"},
	{-17.9315, 25.8307, "ZW", "Matabeleland North", "Victoria Falls"},

	// Asia
	{35.6762, 139.6503, "JP", "Tokyo", "Tokyo"},
	{34.6937, 135.5023, "JP", "Osaka", "Osaka"},
	{35.0116, 135.7681, "JP", "Kyoto", "Kyoto"},
	{37.5665, 126.9780, "KR", "Seoul", "Seoul"},
	{39.9042, 116.4074, "CN", "Beijing", "Beijing"},
	{31.2304, 121.4737, "CN", "Shanghai", "Shanghai"},
	{28.6139, 77.2090, "IN", "Delhi", "New Delhi"},
	{19.0760, 72.8777, "IN", "Maharashtra", "Mumbai"},
	{27.7172, 85.3240, "NP", "Bagmati", "Kathmandu"},
	{13.7563, 100.5018, "TH", "Bangkok", "Bangkok"},
	{18.7883, 98.9853, "TH", "Chiang Mai", "Chiang Mai"},
	{21.0285, 105.8542, "VN", "Ha Noi", "Ha Noi"},
	{1.3521, 103.8198, "SG", "", "Singapore"},
	{3.1390, 101.6869, "MY", "Kuala Lumpur", "Kuala Lumpur"},
	{-6.2088, 106.8456, "ID", "Jakarta", "Jakarta"},
	{-8.4095, 115.1889, "ID", "Bali", "Denpasar"},
	{14.5995, 120.9842, "PH", "Metro Manila", "Manila"},
	{32.0853, 34.7818, "IL", "Tel Aviv", "Tel Aviv"},
	{25.2048, 55.2708, "AE", "Dubai", "Dubai"},
	{41.0082, 28.9784, "TR", "Istanbul", "Istanbul"},

	// Americas
	{40.7128, -74.0060, "US", "New York", "New York"},
	{34.0522, -118.2437, "US", "California", "Los Angeles"},
	{37.7749, -122.4194, "US", "California", "San Francisco"},
	{41.8781, -87.6298, "US", "Illinois", "Chicago"},
	{25.7617, -80.1918, "US", "Florida", "Miami"},
	{36.1069, -112.1129, "US", "Arizona", "Grand Canyon"},
	{44.4280, -110.5885, "US", "Wyoming", "Yellowstone"},
	{43.6532, -79.3832, "CA", "Ontario", "Toronto"},
	{45.5017, -73.5673, "CA", "Quebec", "Montreal"},
	{49.2827, -123.1207, "CA", "British Columbia", "Vancouver"},
	{19.4326, -99.1332, "MX", "Ciudad de Mexico", "Ciudad de Mexico"},
	{20.6534, -87.0739, "MX", "Quintana Roo", "Playa del Carmen"},
	{23.1136, -82.3666, "CU", "La Habana", "La Habana"},
	{9.9281, -84.0907, "CR", "San Jose", "San Jose"},
	{8.9824, -79.5199, "PA", "Panama", "Panama"},
	{4.7110, -74.0721, "CO", "Bogota", "Bogota"},
	{-0.1807, -78.4678, "EC", "Pichincha", "Quito"},
	{-0.7432, -90.3100, "EC", "Galapagos", "Puerto Ayora"},
	{-12.0464, -77.0428, "PE", "Lima", "Lima"},
	{-13.1631, -72.5450, "PE", "Cusco", "Machu Picchu"},
	{-23.5505, -46.6333, "BR", "Sao Paulo", "Sao Paulo"},
	{-22.9068, -43.1729, "BR", "Rio de Janeiro", "Rio de Janeiro"},
	{-34.6037, -58.3816, "AR", "Buenos Aires", "Buenos Aires"},
	{-50.3379, -72.2648, "AR", "Santa Cruz", "El Calafate"},
	{-33.4489, -70.6693, "CL", "Region Metropolitana", "Santiago"},
	{-34.9011, -56.1645, "UY", "Montevideo", "Montevideo"},

	// Oceania
	{-33.8688, 151.2093, "AU", "New South Wales", "Sydney"},
	{-37.8136, 144.9631, "AU", "Victoria", "Melbourne"},
	{-27.4698, 153.0251, "AU", "Queensland", "Brisbane"},
	{-16.9186, 145.7781, "AU", "Queensland", "Cairns"},
	{-36.8485, 174.7633, "NZ", "Auckland", "Auckland"},
	{-45.0312, 168.6626, "NZ", "Otago", "Queenstown"},
}
