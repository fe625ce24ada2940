package geo

// country maps an ISO-3166-1 alpha-2 code to display name and continent.
type country struct {
	Name      string
	Continent string
}

var countries = map[string]country{
	"AD": {"Andorra", "Europe"},
	"AE": {"United Arab Emirates", "Asia"},
	"AR": {"Argentina", "South America"},
	"AT": {"Austria", "Europe"},
	"AU": {"Australia", "Oceania"},
	"BE": {"Belgium", "Europe"},
	"BG": {"Bulgaria", "Europe"},
	"BR": {"Brazil", "South America"},
	"CA": {"Canada", "North America"},
	"CH": {"Switzerland", "Europe"},
	"CL": {"Chile", "South America"},
	"CN": {"China", "Asia"},
	"CO": {"Colombia", "South America"},
	"CR": {"Costa Rica", "North America"},
	"CU": {"Cuba", "North America"},
	"CZ": {"Czechia", "Europe"},
	"DE": {"Germany", "Europe"},
	"DK": {"Denmark", "Europe"},
	"DZ": {"Algeria", "Africa"},
	"EC": {"Ecuador", "South America"},
	"EE": {"Estonia", "Europe"},
	"EG": {"Egypt", "Africa"},
	"ES": {"Spain", "Europe"},
	"ET": {"Ethiopia", "Africa"},
	"FI": {"Finland", "Europe"},
	"FR": {"France", "Europe"},
	"GB": {"United Kingdom", "Europe"},
	"GR": {"Greece", "Europe"},
	"HR": {"Croatia", "Europe"},
	"HU": {"Hungary", "Europe"},
	"ID": {"Indonesia", "Asia"},
	"IE": {"Ireland", "Europe"},
	"IL": {"Israel", "Asia"},
	"IN": {"India", "Asia"},
	"IS": {"Iceland", "Europe"},
	"IT": {"Italy", "Europe"},
	"JP": {"Japan", "Asia"},
	"KE": {"Kenya", "Africa"},
	"KR": {"South Korea", "Asia"},
	"LI": {"Liechtenstein", "Europe"},
	"LT": {"Lithuania", "Europe"},
	"LU": {"Luxembourg", "Europe"},
	"LV": {"Latvia", "Europe"},
	"MA": {"Morocco", "Africa"},
	"MC": {"Monaco", "Europe"},
	"MT": {"Malta", "Europe"},
	"MX": {"Mexico", "North America"},
	"MY": {"Malaysia", "Asia"},
	"NA": {"Namibia", "Africa"},
	"NL": {"Netherlands", "Europe"},
	"NO": {"Norway", "Europe"},
	"NP": {"Nepal", "Asia"},
	"NZ": {"New Zealand", "Oceania"},
	"PA": {"Panama", "North America"},
	"PE": {"Peru", "South America"},
	"PH": {"Philippines", "Asia"},
	"PL": {"Poland", "Europe"},
	"PT": {"Portugal", "Europe"},
	"RO": {"Romania", "Europe"},
	"RS": {"Serbia", "Europe"},
	"SE": {"Sweden", "Europe"},
	"SG": {"Singapore", "Asia"},
	"SI": {"Slovenia", "Europe"},
	"SK": {"Slovakia", "Europe"},
	"SM": {"San Marino", "Europe"},
	"TH": {"Thailand", "Asia"},
	"TN": {"Tunisia", "Africa"},
	"TR": {"Turkey", "Asia"},
	"TZ": {"Tanzania", "Africa"},
	"UA": {"Ukraine", "Europe"},
	"US": {"United States", "North America"},
	"UY": {"Uruguay", "South America"},
	"VA": {"Vatican City", "Europe"},
	"VN": {"Vietnam", "Asia"},
	"ZA": {"South Africa", "Africa"},
	"ZM": {"Zambia", "Africa"},
	"ZW": {"Zimbabwe", "Africa"},
}
