package models

import (
	"context"
	"errors"
	"time"

	"github.com/goormlabs/orders_backend/config"
	"github.com/goormlabs/orders_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SystemApprover is recorded on auto-approved orders.
const SystemApprover = "SYSTEM"

type Order struct {
	ID                  int             `gorm:"primary_key" json:"id"`
	CompanyId           int             `gorm:"index;not null" json:"company_id" binding:"required"`
	OrderNumber         string          `gorm:"size:20;uniqueIndex;not null" json:"order_number"`
	OrderDate           time.Time       `gorm:"index;not null" json:"order_date"`
	OrderStatus         OrderStatus     `gorm:"type:enum('PENDING','APPROVED','COMPLETED');not null" json:"order_status"`
	DeliveryStatus      DeliveryStatus  `gorm:"type:enum('ORDER_COMPLETED','DELIVERY_IN_PROGRESS','DELIVERY_COMPLETED');not null" json:"delivery_status"`
	PaymentStatus       PaymentStatus   `gorm:"type:enum('PENDING','COMPLETED');not null" json:"payment_status"`
	TotalAmount         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	DiscountRate        decimal.Decimal `gorm:"type:decimal(5,2);default:0" json:"discount_rate"`
	DiscountAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount_amount"`
	FinalAmount         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"final_amount"`
	Notes               string          `gorm:"type:text" json:"notes"`
	ApprovedBy          string          `gorm:"size:100" json:"approved_by"`
	ApprovedAt          *time.Time      `json:"approved_at"`
	DeliveryCompletedBy string          `gorm:"size:100" json:"delivery_completed_by"`
	DeliveryCompletedAt *time.Time      `json:"delivery_completed_at"`
	PaymentCompletedBy  string          `gorm:"size:100" json:"payment_completed_by"`
	PaymentCompletedAt  *time.Time      `json:"payment_completed_at"`
	PaymentDueDate      *time.Time      `json:"payment_due_date"`
	InvoiceGeneratedAt  *time.Time      `json:"invoice_generated_at"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	Items               []OrderItem     `gorm:"foreignKey:OrderId" json:"items"`
}

type OrderItem struct {
	ID             int             `gorm:"primary_key" json:"id"`
	OrderId        int             `gorm:"index;not null" json:"order_id"`
	ProductId      int             `gorm:"index;not null" json:"product_id"`
	ProductName    string          `gorm:"size:100;not null" json:"product_name"`
	Quantity       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	DiscountRate   decimal.Decimal `gorm:"type:decimal(5,2);default:0" json:"discount_rate"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount_amount"`
	LineTotal      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"line_total"`
}

type NewOrder struct {
	CompanyId int            `json:"company_id" binding:"required"`
	OrderDate *time.Time     `json:"order_date"`
	Notes     string         `json:"notes"`
	Items     []NewOrderItem `json:"items"`
}

type NewOrderItem struct {
	ProductId int              `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal  `json:"quantity" binding:"required"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

type OrdersConnection struct {
	Edges    []*OrdersEdge `json:"edges"`
	PageInfo *PageInfo     `json:"pageInfo"`
}

type OrdersEdge Edge[Order]

func (o Order) GetCursor() string {
	return o.CreatedAt.String()
}

func (o Order) GetId() int {
	return o.ID
}

// approve is the only way OrderStatus leaves PENDING.
func (o *Order) approve(actor string, at time.Time) error {
	if !o.OrderStatus.CanTransitionTo(OrderStatusApproved) {
		return errors.New("order cannot be approved from status " + string(o.OrderStatus))
	}
	o.OrderStatus = OrderStatusApproved
	o.ApprovedBy = actor
	o.ApprovedAt = &at
	return nil
}

// confirmInvoice stamps the invoice issue time and opens the payment window
// (due at the end of the following month). Idempotent.
func (o *Order) confirmInvoice(at time.Time) {
	if o.InvoiceGeneratedAt != nil {
		return
	}
	o.InvoiceGeneratedAt = &at
	dueDate := utils.EndOfNextMonth(at)
	o.PaymentDueDate = &dueDate
}

func (o Order) IsOverdue() bool {
	return o.PaymentStatus == PaymentStatusPending &&
		o.PaymentDueDate != nil &&
		time.Now().After(*o.PaymentDueDate)
}

// domain errors pass through unchanged; anything else is an unexpected
// persistence failure and gets wrapped
func wrapOrderProcessing(err error) error {
	var insufficientStock *InsufficientStockError
	var notFound *OrderNotFoundError
	var notSelected *OrderItemsNotSelectedError
	var deliveryComplete *DeliveryCompleteError
	var paymentComplete *PaymentCompleteError
	switch {
	case errors.As(err, &insufficientStock),
		errors.As(err, &notFound),
		errors.As(err, &notSelected),
		errors.As(err, &deliveryComplete),
		errors.As(err, &paymentComplete):
		return err
	}
	return &OrderProcessingError{Cause: err}
}

// CreateOrder validates availability per line, resolves the company's loyalty
// discount, allocates the date-scoped order number and persists header+items
// as one transaction. Orders are auto-approved: the row is written PENDING
// and transitioned to APPROVED in the same transaction, so PENDING is never
// observable outside it.
func CreateOrder(ctx context.Context, input *NewOrder) (*Order, error) {
	logger := config.GetLogger()

	if len(input.Items) == 0 {
		return nil, &OrderItemsNotSelectedError{}
	}
	if err := utils.ValidateResourceId[Company](ctx, input.CompanyId); err != nil {
		return nil, errors.New("company not found")
	}

	orderDate := time.Now()
	if input.OrderDate != nil {
		orderDate = *input.OrderDate
	}

	// advisory availability check, fail fast on the first short line; the
	// reservation writes below re-validate under the transaction
	items := make([]OrderItem, 0, len(input.Items))
	var totalAmount decimal.Decimal
	for _, line := range input.Items {
		product, err := utils.FetchModel[Product](ctx, line.ProductId)
		if err != nil {
			return nil, errors.New("product not found")
		}
		if err := CheckAvailability(ctx, line.ProductId, line.Quantity); err != nil {
			return nil, err
		}
		unitPrice := product.UnitPrice
		if line.UnitPrice != nil {
			unitPrice = *line.UnitPrice
		}
		items = append(items, OrderItem{
			ProductId:   line.ProductId,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			UnitPrice:   unitPrice,
		})
		totalAmount = totalAmount.Add(unitPrice.Mul(line.Quantity))
	}

	// rate resolution failure degrades to no discount instead of blocking
	// the order
	discountRate, err := CurrentDiscountRate(ctx, input.CompanyId)
	if err != nil {
		config.LogError(logger, "models", "CreateOrder", "discount rate resolution failed", input.CompanyId, err)
		discountRate = decimal.Zero
	}

	// the order discount is the sum of line discounts, so line totals always
	// sum to the discounted total
	var discountAmount decimal.Decimal
	for i := range items {
		lineAmount := items[i].UnitPrice.Mul(items[i].Quantity)
		lineDiscount := ApplyDiscount(lineAmount, discountRate)
		items[i].DiscountRate = discountRate
		items[i].DiscountAmount = lineDiscount
		items[i].LineTotal = lineAmount.Sub(lineDiscount)
		discountAmount = discountAmount.Add(lineDiscount)
	}

	order := Order{
		CompanyId:      input.CompanyId,
		OrderDate:      orderDate,
		OrderStatus:    OrderStatusPending,
		DeliveryStatus: DeliveryStatusOrderCompleted,
		PaymentStatus:  PaymentStatusPending,
		TotalAmount:    totalAmount,
		DiscountRate:   discountRate,
		DiscountAmount: discountAmount,
		FinalAmount:    FinalAmount(totalAmount, discountAmount),
		Notes:          input.Notes,
		Items:          items,
	}

	seqDate := orderDate.Format(orderNumberDateLayout)
	// best-effort outer lock across instances; the database locks below are
	// the correctness mechanism
	if release, lockErr := utils.AllocationLock(ctx, "ordernum", seqDate, "models", "CreateOrder"); lockErr == nil {
		defer release()
	}

	db := config.GetDB()
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := AcquireOrderNumberLock(tx.WithContext(ctx), seqDate); err != nil {
			return err
		}
		defer ReleaseOrderNumberLock(tx.WithContext(ctx), seqDate)

		orderNumber, err := allocateOrderNumber(tx.WithContext(ctx), orderDate)
		if err != nil {
			return err
		}
		order.OrderNumber = orderNumber

		if err := tx.WithContext(ctx).Create(&order).Error; err != nil {
			return err
		}

		// hold stock for every line until delivery consumes it
		for _, item := range order.Items {
			if err := reserveStock(tx.WithContext(ctx), item.ProductId, item.Quantity, item.ProductName); err != nil {
				return err
			}
		}

		if err := order.approve(SystemApprover, time.Now()); err != nil {
			return err
		}
		return tx.WithContext(ctx).Model(&order).Updates(map[string]interface{}{
			"OrderStatus": order.OrderStatus,
			"ApprovedBy":  order.ApprovedBy,
			"ApprovedAt":  order.ApprovedAt,
		}).Error
	})
	if err != nil {
		return nil, wrapOrderProcessing(err)
	}

	return &order, nil
}

// StartDelivery marks an approved order as being shipped.
func StartDelivery(ctx context.Context, id int, actor string) (*Order, error) {

	db := config.GetDB()
	var order Order
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&order, id).Error; err != nil {
			return &OrderNotFoundError{OrderId: id}
		}
		if order.DeliveryStatus == DeliveryStatusDeliveryCompleted {
			return &DeliveryCompleteError{
				MessageKey: "order.delivery.alreadyCompleted",
				Args:       []interface{}{order.OrderNumber},
			}
		}
		if !order.DeliveryStatus.CanTransitionTo(DeliveryStatusInProgress) {
			return errors.New("delivery already in progress")
		}
		order.DeliveryStatus = DeliveryStatusInProgress
		return tx.WithContext(ctx).Model(&order).
			Update("DeliveryStatus", order.DeliveryStatus).Error
	})
	if err != nil {
		return nil, wrapOrderProcessing(err)
	}
	return &order, nil
}

// CompleteDelivery consumes stock for every line and closes the delivery
// dimension. The order row is locked for the duration, so a second call can
// only observe DELIVERY_COMPLETED and fails without touching inventory.
func CompleteDelivery(ctx context.Context, id int, actor string) (*Order, error) {

	db := config.GetDB()
	var order Order
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Items").First(&order, id).Error; err != nil {
			return &OrderNotFoundError{OrderId: id}
		}
		if order.DeliveryStatus == DeliveryStatusDeliveryCompleted {
			return &DeliveryCompleteError{
				MessageKey: "order.delivery.alreadyCompleted",
				Args:       []interface{}{order.OrderNumber},
			}
		}

		for _, item := range order.Items {
			if err := consumeStock(tx.WithContext(ctx), item, order.ID, actor); err != nil {
				return err
			}
		}

		now := time.Now()
		order.OrderStatus = OrderStatusCompleted
		order.DeliveryStatus = DeliveryStatusDeliveryCompleted
		order.DeliveryCompletedBy = actor
		order.DeliveryCompletedAt = &now
		order.confirmInvoice(now)

		return tx.WithContext(ctx).Model(&order).Updates(map[string]interface{}{
			"OrderStatus":         order.OrderStatus,
			"DeliveryStatus":      order.DeliveryStatus,
			"DeliveryCompletedBy": order.DeliveryCompletedBy,
			"DeliveryCompletedAt": order.DeliveryCompletedAt,
			"InvoiceGeneratedAt":  order.InvoiceGeneratedAt,
			"PaymentDueDate":      order.PaymentDueDate,
		}).Error
	})
	if err != nil {
		return nil, wrapOrderProcessing(err)
	}
	return &order, nil
}

// CompletePayment closes the payment dimension. Independent of delivery;
// the two completions may happen in either order.
func CompletePayment(ctx context.Context, id int, actor string) (*Order, error) {

	db := config.GetDB()
	var order Order
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&order, id).Error; err != nil {
			return &OrderNotFoundError{OrderId: id}
		}
		if order.PaymentStatus == PaymentStatusCompleted {
			return &PaymentCompleteError{
				MessageKey: "order.payment.alreadyCompleted",
				Args:       []interface{}{order.OrderNumber},
			}
		}

		now := time.Now()
		order.PaymentStatus = PaymentStatusCompleted
		order.PaymentCompletedBy = actor
		order.PaymentCompletedAt = &now

		return tx.WithContext(ctx).Model(&order).Updates(map[string]interface{}{
			"PaymentStatus":      order.PaymentStatus,
			"PaymentCompletedBy": order.PaymentCompletedBy,
			"PaymentCompletedAt": order.PaymentCompletedAt,
		}).Error
	})
	if err != nil {
		return nil, wrapOrderProcessing(err)
	}
	return &order, nil
}

func GetOrder(ctx context.Context, id int) (*Order, error) {

	db := config.GetDB()
	var result Order
	err := db.WithContext(ctx).Preload("Items").First(&result, id).Error
	if err != nil {
		return nil, &OrderNotFoundError{OrderId: id}
	}
	return &result, nil
}

type OrderSearchFilter struct {
	OrderNumber    *string         `json:"order_number" form:"order_number"`
	CompanyId      *int            `json:"company_id" form:"company_id"`
	OrderStatus    *OrderStatus    `json:"order_status" form:"order_status"`
	DeliveryStatus *DeliveryStatus `json:"delivery_status" form:"delivery_status"`
	PaymentStatus  *PaymentStatus  `json:"payment_status" form:"payment_status"`
	FromDate       *time.Time      `json:"from_date" form:"from_date"`
	ToDate         *time.Time      `json:"to_date" form:"to_date"`
}

func PaginateOrders(ctx context.Context, limit int, after *string, filter *OrderSearchFilter) (*OrdersConnection, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("Items")
	if filter != nil {
		if filter.OrderNumber != nil && *filter.OrderNumber != "" {
			dbCtx.Where("order_number LIKE ?", "%"+*filter.OrderNumber+"%")
		}
		if filter.CompanyId != nil && *filter.CompanyId > 0 {
			dbCtx.Where("company_id = ?", *filter.CompanyId)
		}
		if filter.OrderStatus != nil && *filter.OrderStatus != "" {
			dbCtx.Where("order_status = ?", *filter.OrderStatus)
		}
		if filter.DeliveryStatus != nil && *filter.DeliveryStatus != "" {
			dbCtx.Where("delivery_status = ?", *filter.DeliveryStatus)
		}
		if filter.PaymentStatus != nil && *filter.PaymentStatus != "" {
			dbCtx.Where("payment_status = ?", *filter.PaymentStatus)
		}
		if filter.FromDate != nil {
			dbCtx.Where("order_date >= ?", *filter.FromDate)
		}
		if filter.ToDate != nil {
			dbCtx.Where("order_date <= ?", *filter.ToDate)
		}
	}

	edges, pageInfo, err := FetchPageCompositeCursor[Order](dbCtx, limit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}
	var connection OrdersConnection
	connection.PageInfo = pageInfo
	for _, edge := range edges {
		ordersEdge := OrdersEdge(edge)
		connection.Edges = append(connection.Edges, &ordersEdge)
	}
	return &connection, nil
}

func GetOrdersByCompany(ctx context.Context, companyId int) ([]*Order, error) {

	db := config.GetDB()
	var results []*Order
	err := db.WithContext(ctx).Preload("Items").
		Where("company_id = ?", companyId).
		Order("order_date DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
