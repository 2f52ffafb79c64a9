package model

// SaleRecord is an immutable log entry for one confirmed sale. ProductName,
// ProductImage and SoldAtPrice are copied from the product at sale time so
// the record stays meaningful after the product is edited or deleted.
// Records are only ever created, listed, or wholesale-replaced during a
// full-dataset overwrite - never mutated.
type SaleRecord struct {
	ID           string  `json:"id"`
	ProductID    string  `json:"productId"`
	ProductName  string  `json:"productName"`
	ProductImage string  `json:"productImage"`
	Quantity     int     `json:"quantity"`
	SoldAtPrice  float64 `json:"soldAtPrice"`
	Timestamp    int64   `json:"timestamp"`
}

// Total is the amount this sale added to the earnings scalar.
func (s SaleRecord) Total() float64 {
	return s.SoldAtPrice * float64(s.Quantity)
}
