package models

// CountByLabel is one row of a grouped count
type CountByLabel struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// QuotationStats is the aggregate shown on the admin dashboard
type QuotationStats struct {
	TotalQuotations int64          `json:"total_quotations"`
	ByService       []CountByLabel `json:"by_service"`
	ByStatus        []CountByLabel `json:"by_status"`
	Recent          []*Quotation   `json:"recent"`
}

// RecentQuotationsLimit is how many quotations QuotationStats.Recent holds
const RecentQuotationsLimit = 5
