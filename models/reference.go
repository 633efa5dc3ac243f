package models

type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type Region struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var Countries = []Country{
	{"US", "United States"},
	{"GB", "United Kingdom"},
	{"CA", "Canada"},
	{"AU", "Australia"},
	{"DE", "Germany"},
	{"FR", "France"},
	{"JP", "Japan"},
	{"BR", "Brazil"},
	{"RU", "Russia"},
	{"CN", "China"},
	{"IN", "India"},
	{"KR", "South Korea"},
}

var Regions = []Region{
	{"global", "Global"},
	{"na", "North America"},
	{"eu", "Europe"},
	{"asia", "Asia"},
	{"oce", "Oceania"},
	{"sa", "South America"},
}

func IsKnownCountry(code string) bool {
	for _, c := range Countries {
		if c.Code == code {
			return true
		}
	}
	return false
}

func IsKnownRegion(code string) bool {
	for _, r := range Regions {
		if r.Code == code {
			return true
		}
	}
	return false
}
