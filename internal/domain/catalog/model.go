package catalog

import "time"

type Customer struct {
	ID        int64
	Name      string
	Phone     string
	Address   string
	Active    bool
	CreatedAt time.Time
}

type Supplier struct {
	ID        int64
	Name      string
	Contact   string
	Phone     string
	Active    bool
	CreatedAt time.Time
}

type Branch struct {
	ID        int64
	Name      string
	Address   string
	Active    bool
	CreatedAt time.Time
}
