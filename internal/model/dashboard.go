package model

type DashboardStats struct {
	Users    Count  `json:"users"`
	Orders   Count  `json:"orders"`
	Products Count  `json:"products"`
	Revenue  Amount `json:"revenue"`
}
