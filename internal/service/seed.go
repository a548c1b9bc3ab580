package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/d60-Lab/bcc-marketplace/internal/model"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func usd(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// SeedOrders returns the store's historical demo orders, newest history first.
func SeedOrders() []*model.Order {
	return []*model.Order{
		{
			OrderID:           "BCC-24001",
			ContactName:       "Jennifer Smith",
			ContactEmail:      "parent@demo.com",
			Status:            model.OrderStatusOutForDelivery,
			PlacedAt:          ts("2025-10-02T14:30:00Z"),
			EstimatedDelivery: ts("2025-10-10T16:00:00Z"),
			Total:             usd("73.00"),
			Items: []model.OrderItem{
				{ProductID: "faith-family-box", Name: "Faith at Home Family Box", Quantity: 1, UnitPrice: usd("48.00")},
				{ProductID: "praise-card-pack", Name: "Kids Praise Card Pack", Quantity: 2, UnitPrice: usd("12.50")},
			},
			History: []model.StatusEntry{
				{Label: "Out for delivery", Timestamp: ts("2025-10-09T14:20:00Z")},
				{Label: "Departed fulfillment center", Timestamp: ts("2025-10-08T09:00:00Z")},
				{Label: model.HistoryPaymentReceived, Timestamp: ts("2025-10-02T14:35:00Z")},
				{Label: "Order confirmed", Timestamp: ts("2025-10-02T14:31:00Z")},
				{Label: "Order placed", Timestamp: ts("2025-10-02T14:30:00Z")},
			},
		},
		{
			OrderID:           "BCC-24018",
			ContactName:       "Michael Johnson",
			ContactEmail:      "teacher@demo.com",
			Status:            model.OrderStatusProcessing,
			PlacedAt:          ts("2025-10-05T18:05:00Z"),
			EstimatedDelivery: ts("2025-10-12T20:00:00Z"),
			Total:             usd("123.00"),
			Items: []model.OrderItem{
				{ProductID: "weekend-lesson-kit", Name: "Weekend Lesson Kit: Acts & Adventure", Quantity: 2, UnitPrice: usd("39.00")},
				{ProductID: "craft-celebration-bundle", Name: "Celebration Craft Bundle", Quantity: 1, UnitPrice: usd("27.00")},
				{ProductID: "worship-playlist-bundle", Name: "Worship Playlist + Motions Bundle", Quantity: 1, UnitPrice: usd("18.00")},
			},
			History: []model.StatusEntry{
				{Label: "Preparing for shipment", Timestamp: ts("2025-10-06T09:10:00Z")},
				{Label: model.HistoryPaymentReceived, Timestamp: ts("2025-10-05T18:06:00Z")},
				{Label: "Order confirmed", Timestamp: ts("2025-10-05T18:05:30Z")},
			},
		},
	}
}
