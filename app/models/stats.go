package models

// DailyStats holds the report count for a single day
type DailyStats struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}
