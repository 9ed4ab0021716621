package domain

type Organization struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Currency string `json:"currency"`
	LogoURL  string `json:"logoUrl"`
}

type Theme struct {
	Mode         string `json:"mode"`
	PrimaryColor string `json:"primaryColor"`
	FontScale    int    `json:"fontScale"`
}

const (
	ModulePOS          = "pos"
	ModuleInventory    = "inventory"
	ModuleChallan      = "challan"
	ModuleServiceJobs  = "serviceJobs"
	ModuleRestaurant   = "restaurant"
	ModuleMicrofinance = "microfinance"
	ModuleAccounting   = "accounting"
)

type Settings struct {
	Organization Organization    `json:"organization"`
	Theme        Theme           `json:"theme"`
	Modules      map[string]bool `json:"modules"`
}
