package model

import (
	"time"
)

// ShopReport aggregates delivered revenue and workload for a period.
type ShopReport struct {
	TotalRevenue       string              `json:"total_revenue"`
	TotalRefunded      string              `json:"total_refunded"`
	DeliveredOrders    int                 `json:"delivered_orders"`
	CanceledOrders     int                 `json:"canceled_orders"`
	OpenOrders         int                 `json:"open_orders"`
	TechnicianRanking  []TechnicianRanking `json:"technician_ranking"`
	TopDeviceModels    []DeviceModelCount  `json:"top_device_models"`
	TimeRangeStartDate time.Time           `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time           `json:"time_range_end_date"`
}

// TechnicianRanking ranks technicians by points awarded in the period.
type TechnicianRanking struct {
	TechnicianID   string `json:"technician_id"`
	TechnicianName string `json:"technician_name"`
	TotalPoints    int    `json:"total_points"`
	OrdersRepaired int    `json:"orders_repaired"`
}

// DeviceModelCount ranks device models by order volume.
type DeviceModelCount struct {
	DeviceModel string `json:"device_model"`
	OrderCount  int    `json:"order_count"`
}
