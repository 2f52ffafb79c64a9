package model

// Collection names as used by the local store, the cloud adapters, and the
// export file format.
const (
	CollectionCategories = "categories"
	CollectionProducts   = "products"
	CollectionSales      = "sales"
)

// Collections lists the three record collections in load order.
var Collections = []string{CollectionCategories, CollectionProducts, CollectionSales}

// Snapshot is the full dataset for one user at one instant: the three
// collections plus the earnings scalar. LastSync is adapter-added metadata
// and is ignored when comparing snapshots.
type Snapshot struct {
	Categories []Category   `json:"categories"`
	Products   []Product    `json:"products"`
	Sales      []SaleRecord `json:"sales"`
	Earnings   float64      `json:"earnings"`
	LastSync   int64        `json:"lastSync,omitempty"`
}

// IsEmpty reports whether the snapshot carries no records and no earnings.
func (s Snapshot) IsEmpty() bool {
	return len(s.Categories) == 0 && len(s.Products) == 0 && len(s.Sales) == 0 && s.Earnings == 0
}
