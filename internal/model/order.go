package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 订单状态
const (
	OrderStatusAwaitingPayment = "Awaiting Payment"
	OrderStatusPaymentReceived = "Payment received - preparing for shipment"
	OrderStatusProcessing      = "Processing"
	OrderStatusOutForDelivery  = "Out for Delivery"
)

// 状态时间线条目
const (
	HistoryOrderCreated    = "Order created"
	HistoryAwaitingPayment = "Awaiting payment"
	HistoryPaymentReceived = "Payment received"
)

// Order 订单模型
type Order struct {
	OrderID           string          `json:"order_id" gorm:"primaryKey;type:varchar(32)"`
	ContactName       string          `json:"name" gorm:"type:varchar(128);not null"`
	ContactEmail      string          `json:"email" gorm:"type:varchar(255);not null"`
	EmailKey          string          `json:"-" gorm:"type:varchar(255);index:idx_order_email_placed;not null"` // 小写邮箱，用于查询
	Status            string          `json:"status" gorm:"type:varchar(64);index;not null"`
	PlacedAt          time.Time       `json:"placed_on" gorm:"index:idx_order_email_placed;not null"`
	EstimatedDelivery time.Time       `json:"estimated_delivery"`
	Total             decimal.Decimal `json:"total" gorm:"type:decimal(10,2);not null"`
	Items             []OrderItem     `json:"items" gorm:"foreignKey:OrderID;references:OrderID;constraint:OnDelete:CASCADE"`
	History           []StatusEntry   `json:"status_history" gorm:"foreignKey:OrderID;references:OrderID;constraint:OnDelete:CASCADE"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// TableName 指定表名
func (Order) TableName() string { return "orders" }

// OrderItem 下单时的商品快照，与目录解耦
type OrderItem struct {
	ID        uint            `json:"-" gorm:"primaryKey;autoIncrement"`
	OrderID   string          `json:"-" gorm:"type:varchar(32);index;not null"`
	ProductID string          `json:"product_id" gorm:"type:varchar(64)"`
	Name      string          `json:"name" gorm:"type:varchar(255);not null"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	UnitPrice decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
}

func (OrderItem) TableName() string { return "order_items" }

// LineTotal 行金额
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// StatusEntry 状态时间线条目，Seq 越大越新
type StatusEntry struct {
	ID        uint      `json:"-" gorm:"primaryKey;autoIncrement"`
	OrderID   string    `json:"-" gorm:"type:varchar(32);index:idx_status_order_seq;not null"`
	Seq       int       `json:"-" gorm:"index:idx_status_order_seq;not null"`
	Label     string    `json:"label" gorm:"type:varchar(128);not null"`
	Timestamp time.Time `json:"timestamp" gorm:"not null"`
}

func (StatusEntry) TableName() string { return "order_status_entries" }

// IsPaid 是否已收款
func (o *Order) IsPaid() bool {
	for _, e := range o.History {
		if e.Label == HistoryPaymentReceived {
			return true
		}
	}
	return o.Status == OrderStatusPaymentReceived
}

// NextSeq 下一条时间线序号
func (o *Order) NextSeq() int {
	max := 0
	for _, e := range o.History {
		if e.Seq > max {
			max = e.Seq
		}
	}
	return max + 1
}

// Prepend 将新条目插到时间线最前（最新在前）
func (o *Order) Prepend(entry StatusEntry) {
	entry.OrderID = o.OrderID
	if entry.Seq == 0 {
		entry.Seq = o.NextSeq()
	}
	o.History = append([]StatusEntry{entry}, o.History...)
}

// Clone 深拷贝，避免调用方与存储共享切片
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	cp := *o
	cp.Items = append([]OrderItem(nil), o.Items...)
	cp.History = append([]StatusEntry(nil), o.History...)
	return &cp
}
