package directoryservice

// Staff мастер салона из справочника DirectoryService
type Staff struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
	IsActive  bool   `json:"isActive"`
}

// Customer клиент салона из справочника DirectoryService
type Customer struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	IsActive  bool   `json:"isActive"`
}
