package generator

type Country struct {
	Name         string
	Weight       float64
	Cities       []string
	Currency     string
	ExchangeRate float64
}

// Countries carries per-market weights and the units of local currency per
// US dollar.
var Countries = []Country{
	{"USA", 0.35, []string{"New York", "Los Angeles", "Chicago", "Houston", "Phoenix", "Philadelphia", "San Antonio", "San Diego", "Dallas", "San Jose"}, "USD", 1.0},
	{"UK", 0.12, []string{"London", "Manchester", "Birmingham", "Liverpool", "Leeds"}, "GBP", 0.79},
	{"Germany", 0.10, []string{"Berlin", "Munich", "Hamburg", "Frankfurt", "Cologne"}, "EUR", 0.92},
	{"France", 0.08, []string{"Paris", "Marseille", "Lyon", "Toulouse", "Nice"}, "EUR", 0.92},
	{"Canada", 0.07, []string{"Toronto", "Vancouver", "Montreal", "Calgary", "Ottawa"}, "CAD", 1.35},
	{"Australia", 0.06, []string{"Sydney", "Melbourne", "Brisbane", "Perth", "Adelaide"}, "AUD", 1.52},
	{"Spain", 0.05, []string{"Madrid", "Barcelona", "Valencia", "Seville", "Zaragoza"}, "EUR", 0.92},
	{"Italy", 0.04, []string{"Rome", "Milan", "Naples", "Turin", "Florence"}, "EUR", 0.92},
	{"Brazil", 0.04, []string{"São Paulo", "Rio de Janeiro", "Brasília", "Salvador", "Fortaleza"}, "BRL", 5.02},
	{"Mexico", 0.03, []string{"Mexico City", "Guadalajara", "Monterrey", "Puebla", "Tijuana"}, "MXN", 17.15},
	{"Japan", 0.02, []string{"Tokyo", "Osaka", "Yokohama", "Nagoya", "Sapporo"}, "JPY", 149.50},
	{"Netherlands", 0.015, []string{"Amsterdam", "Rotterdam", "The Hague", "Utrecht", "Eindhoven"}, "EUR", 0.92},
	{"Sweden", 0.01, []string{"Stockholm", "Gothenburg", "Malmö", "Uppsala", "Västerås"}, "SEK", 10.50},
}

type Category struct {
	Name          string
	Subcategories []string
	PriceMin      float64
	PriceMax      float64
	MarginMin     float64
	MarginMax     float64
	Brands        []string
}

var Categories = []Category{
	{"Electronics", []string{"Smartphones", "Laptops", "Tablets", "Headphones", "Cameras"}, 50, 2000, 0.15, 0.35,
		[]string{"Apple", "Samsung", "Sony", "Dell", "HP", "Lenovo", "Bose"}},
	{"Fashion", []string{"Mens Clothing", "Womens Clothing", "Shoes", "Accessories", "Jewelry"}, 20, 500, 0.40, 0.65,
		[]string{"Nike", "Adidas", "Zara", "H&M", "Gucci", "Prada", "Levis"}},
	{"Home", []string{"Furniture", "Kitchen", "Decor", "Bedding", "Storage"}, 15, 800, 0.35, 0.55,
		[]string{"IKEA", "Wayfair", "West Elm", "Crate & Barrel", "HomeGoods"}},
	{"Sports", []string{"Fitness Equipment", "Outdoor Gear", "Team Sports", "Cycling", "Yoga"}, 10, 600, 0.30, 0.50,
		[]string{"Under Armour", "Reebok", "Columbia", "The North Face", "Patagonia"}},
	{"Books", []string{"Fiction", "Non-Fiction", "Educational", "Comics", "Magazines"}, 5, 60, 0.25, 0.45,
		[]string{"Penguin", "Harper Collins", "Random House", "Scholastic", "Marvel"}},
	{"Beauty", []string{"Skincare", "Makeup", "Haircare", "Fragrance", "Tools"}, 10, 200, 0.50, 0.70,
		[]string{"LOreal", "Estée Lauder", "MAC", "Sephora", "Clinique"}},
	{"Toys", []string{"Action Figures", "Board Games", "Educational", "Outdoor Toys", "Puzzles"}, 5, 150, 0.40, 0.60,
		[]string{"LEGO", "Mattel", "Hasbro", "Fisher-Price", "Melissa & Doug"}},
	{"Groceries", []string{"Snacks", "Beverages", "Organic", "Frozen", "Canned Goods"}, 2, 50, 0.20, 0.35,
		[]string{"Nestle", "Coca-Cola", "Pepsi", "Kraft", "General Mills"}},
}

var (
	PaymentMethods = []string{"Credit Card", "PayPal", "Apple Pay", "Google Pay", "Bank Transfer"}

	DeviceTypes   = []string{"Desktop", "Mobile", "Tablet"}
	deviceWeights = []float64{0.45, 0.45, 0.10}

	TrafficSources = []string{"Organic", "Paid", "Social", "Email", "Direct"}
	trafficWeights = []float64{0.30, 0.25, 0.20, 0.15, 0.10}

	// Half of the ladder is no discount.
	discountLadder = []float64{0, 0, 0, 0, 0.05, 0.10, 0.15, 0.20, 0.30}
)

// Gap-year tables bridge the real 2010-2011 export and the synthetic window.
var (
	gapYearCounts = []struct {
		Year  int
		Count int
	}{
		{2012, 35000}, {2013, 32000}, {2014, 30000}, {2015, 28000}, {2016, 26000},
		{2017, 24000}, {2018, 22000}, {2019, 20000}, {2020, 18000}, {2021, 16000}, {2022, 15000},
	}

	gapCountries       = []string{"USA", "UK", "Germany", "France", "Canada", "Spain", "Italy", "Netherlands", "Belgium", "Switzerland", "Sweden", "Norway", "Denmark"}
	gapCountryWeights  = []float64{0.35, 0.12, 0.10, 0.08, 0.07, 0.05, 0.05, 0.04, 0.03, 0.03, 0.03, 0.03, 0.02}
	gapPaymentMethods  = []string{"Credit Card", "Debit Card", "PayPal", "Google Pay", "Apple Pay"}
	gapSegments        = []string{"Regular", "VIP", "New", "At-Risk"}
	gapTrafficSources  = []string{"Organic", "Direct", "Paid Ads", "Social Media"}
	realPaymentMethods = []string{"Credit Card", "Debit Card", "PayPal"}
	realSegments       = []string{"Regular", "VIP", "New"}
	realTrafficSources = []string{"Organic", "Direct", "Paid Ads"}
)

var realRegions = map[string][]string{
	"United Kingdom": {"London", "Manchester", "Birmingham", "Liverpool", "Leeds"},
	"Germany":        {"Berlin", "Munich", "Hamburg", "Frankfurt"},
	"France":         {"Paris", "Lyon", "Marseille", "Nice"},
}

// categoryKeywords maps description keywords to categories. Order matters:
// the first category with a matching keyword wins.
var categoryKeywords = []struct {
	Category    string
	Subcategory string
	Keywords    []string
}{
	{"Electronics", "Gadgets", []string{"PHONE", "CAMERA", "LAPTOP", "TABLET", "HEADPHONE", "CHARGER", "CABLE"}},
	{"Fashion", "Accessories", []string{"T-SHIRT", "SHIRT", "DRESS", "SHOE", "BAG", "PURSE", "GLOVE", "SCARF", "HAT"}},
	{"Home", "Decor", []string{"LAMP", "CUSHION", "CANDLE", "HOLDER", "FRAME", "VASE", "BOWL", "PLATE", "CUP", "MUG", "STORAGE", "BOX", "BASKET"}},
	{"Beauty", "General", []string{"SOAP", "CREAM", "LOTION", "PERFUME", "MAKEUP", "BRUSH"}},
	{"Toys", "General", []string{"TOY", "GAME", "DOLL", "TEDDY", "PUZZLE", "BALL"}},
	{"Books", "General", []string{"BOOK", "NOTEBOOK", "DIARY", "CARD"}},
	{"Sports", "General", []string{"BIKE", "FITNESS", "YOGA", "SPORT"}},
	{"Groceries", "General", []string{"TEA", "COFFEE", "CHOCOLATE", "CAKE", "BISCUIT"}},
}
