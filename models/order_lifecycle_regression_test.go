package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/goormlabs/orders_backend/config"
	"github.com/goormlabs/orders_backend/models"
	"github.com/goormlabs/orders_backend/utils"
	"github.com/shopspring/decimal"
)

// Order lifecycle regression harness.
//
// Non-negotiable safety: this test is intended to catch changes that would alter:
// - order number uniqueness/monotonicity within a date
// - stock reservation at create and consumption at delivery
// - idempotency of the delivery/payment completions
//
// Usage:
// - Run (requires Docker): INTEGRATION_TESTS=1 go test ./models -run OrderLifecycle -v

func setupIntegrationEnv(t *testing.T) context.Context {
	t.Helper()

	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	// Wire env for config.Connect* helpers.
	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "orders_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	if err := models.MigrateTable(); err != nil {
		t.Fatalf("MigrateTable: %v", err)
	}

	ctx := context.Background()
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")
	return ctx
}

func mustCreateProductWithStock(t *testing.T, ctx context.Context, code, name string, unitPrice, stock int64) *models.Product {
	t.Helper()

	product, err := models.CreateProduct(ctx, &models.NewProduct{
		Code:      code,
		Name:      name,
		UnitPrice: decimal.NewFromInt(unitPrice),
	})
	if err != nil {
		t.Fatalf("CreateProduct(%s): %v", code, err)
	}
	if stock > 0 {
		if _, err := models.ReceiveStock(ctx, &models.ReceiveStockInput{
			ProductId: product.ID,
			Quantity:  decimal.NewFromInt(stock),
			UnitPrice: decimal.NewFromInt(unitPrice),
		}, "Test"); err != nil {
			t.Fatalf("ReceiveStock(%s): %v", code, err)
		}
	}
	return product
}

func TestOrderLifecycleEndToEnd(t *testing.T) {
	ctx := setupIntegrationEnv(t)

	company, err := models.CreateCompany(ctx, &models.NewCompany{Name: "Acme Trading"})
	if err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}

	stapler := mustCreateProductWithStock(t, ctx, "STAPLER-001", "Stapler", 10000, 100)
	binder := mustCreateProductWithStock(t, ctx, "BINDER-001", "Binder", 5000, 50)

	// 1) Create an order; it must come back auto-approved.
	first, err := models.CreateOrder(ctx, &models.NewOrder{
		CompanyId: company.ID,
		Items: []models.NewOrderItem{
			{ProductId: stapler.ID, Quantity: decimal.NewFromInt(10)},
			{ProductId: binder.ID, Quantity: decimal.NewFromInt(4)},
		},
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if first.OrderStatus != models.OrderStatusApproved {
		t.Fatalf("expected APPROVED, got %s", first.OrderStatus)
	}
	if first.ApprovedBy != models.SystemApprover {
		t.Fatalf("expected approver %q, got %q", models.SystemApprover, first.ApprovedBy)
	}
	if first.ApprovedAt == nil {
		t.Fatal("expected ApprovedAt to be set")
	}
	wantNumber := models.FormatOrderNumber(first.OrderDate, 1)
	if first.OrderNumber != wantNumber {
		t.Fatalf("expected order number %q, got %q", wantNumber, first.OrderNumber)
	}
	if !first.TotalAmount.Equal(decimal.NewFromInt(120000)) {
		t.Fatalf("expected total 120000, got %s", first.TotalAmount.String())
	}
	// No trailing-year purchases yet, so no discount applies.
	if !first.DiscountAmount.Equal(decimal.Zero) {
		t.Fatalf("expected zero discount, got %s", first.DiscountAmount.String())
	}

	// Creation reserves stock without consuming it.
	inv, err := models.GetInventory(ctx, stapler.ID)
	if err != nil {
		t.Fatalf("GetInventory: %v", err)
	}
	if !inv.CurrentStock.Equal(decimal.NewFromInt(100)) || !inv.ReservedStock.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected stock 100/reserved 10, got %s/%s", inv.CurrentStock.String(), inv.ReservedStock.String())
	}

	// 2) A second order on the same date gets the next sequence.
	second, err := models.CreateOrder(ctx, &models.NewOrder{
		CompanyId: company.ID,
		Items:     []models.NewOrderItem{{ProductId: binder.ID, Quantity: decimal.NewFromInt(2)}},
	})
	if err != nil {
		t.Fatalf("CreateOrder(second): %v", err)
	}
	if second.OrderNumber != models.FormatOrderNumber(second.OrderDate, 2) {
		t.Fatalf("expected second order number seq 2, got %q", second.OrderNumber)
	}

	// 3) Complete delivery: stock is consumed and the invoice window opens.
	delivered, err := models.CompleteDelivery(ctx, first.ID, "Driver")
	if err != nil {
		t.Fatalf("CompleteDelivery: %v", err)
	}
	if delivered.OrderStatus != models.OrderStatusCompleted {
		t.Fatalf("expected order COMPLETED, got %s", delivered.OrderStatus)
	}
	if delivered.DeliveryStatus != models.DeliveryStatusDeliveryCompleted {
		t.Fatalf("expected DELIVERY_COMPLETED, got %s", delivered.DeliveryStatus)
	}
	if delivered.InvoiceGeneratedAt == nil || delivered.PaymentDueDate == nil {
		t.Fatal("expected invoice timestamp and payment due date to be set")
	}
	wantDue := utils.EndOfNextMonth(*delivered.InvoiceGeneratedAt)
	if !delivered.PaymentDueDate.Equal(wantDue) {
		t.Fatalf("expected due date %s, got %s", wantDue, delivered.PaymentDueDate)
	}

	inv, err = models.GetInventory(ctx, stapler.ID)
	if err != nil {
		t.Fatalf("GetInventory after delivery: %v", err)
	}
	if !inv.CurrentStock.Equal(decimal.NewFromInt(90)) || !inv.ReservedStock.Equal(decimal.Zero) {
		t.Fatalf("expected stock 90/reserved 0, got %s/%s", inv.CurrentStock.String(), inv.ReservedStock.String())
	}

	// The ledger carries a negative consumption row tied to the order.
	txns, err := models.GetInventoryTransactions(ctx, &stapler.ID, nil, &first.ID)
	if err != nil {
		t.Fatalf("GetInventoryTransactions: %v", err)
	}
	if len(txns) != 1 {
		t.Fatalf("expected 1 consumption row, got %d", len(txns))
	}
	if txns[0].Type != models.TransactionTypeOrderConsumed || !txns[0].Quantity.Equal(decimal.NewFromInt(-10)) {
		t.Fatalf("unexpected ledger row: type=%s qty=%s", txns[0].Type, txns[0].Quantity.String())
	}

	// 4) Delivering again must fail cleanly and must not touch inventory.
	if _, err := models.CompleteDelivery(ctx, first.ID, "Driver"); err == nil {
		t.Fatal("expected error on second delivery completion")
	} else {
		var deliveryComplete *models.DeliveryCompleteError
		if !errors.As(err, &deliveryComplete) {
			t.Fatalf("expected DeliveryCompleteError, got %T: %v", err, err)
		}
		if deliveryComplete.MessageKey != "order.delivery.alreadyCompleted" {
			t.Fatalf("unexpected message key %q", deliveryComplete.MessageKey)
		}
		if len(deliveryComplete.Args) != 1 || deliveryComplete.Args[0] != first.OrderNumber {
			t.Fatalf("expected args [%q], got %v", first.OrderNumber, deliveryComplete.Args)
		}
	}
	inv, _ = models.GetInventory(ctx, stapler.ID)
	if !inv.CurrentStock.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("second delivery attempt changed stock: %s", inv.CurrentStock.String())
	}

	// 5) Payment completes once, then rejects.
	paid, err := models.CompletePayment(ctx, first.ID, "Accountant")
	if err != nil {
		t.Fatalf("CompletePayment: %v", err)
	}
	if paid.PaymentStatus != models.PaymentStatusCompleted {
		t.Fatalf("expected payment COMPLETED, got %s", paid.PaymentStatus)
	}
	if _, err := models.CompletePayment(ctx, first.ID, "Accountant"); err == nil {
		t.Fatal("expected error on second payment completion")
	} else {
		var paymentComplete *models.PaymentCompleteError
		if !errors.As(err, &paymentComplete) {
			t.Fatalf("expected PaymentCompleteError, got %T: %v", err, err)
		}
		if paymentComplete.MessageKey != "order.payment.alreadyCompleted" {
			t.Fatalf("unexpected message key %q", paymentComplete.MessageKey)
		}
	}
}

func TestOrderLifecycleInsufficientStock(t *testing.T) {
	ctx := setupIntegrationEnv(t)

	company, err := models.CreateCompany(ctx, &models.NewCompany{Name: "Short Stock Co"})
	if err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}
	pen := mustCreateProductWithStock(t, ctx, "PEN-001", "Pen", 500, 3)

	_, err = models.CreateOrder(ctx, &models.NewOrder{
		CompanyId: company.ID,
		Items:     []models.NewOrderItem{{ProductId: pen.ID, Quantity: decimal.NewFromInt(5)}},
	})
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	var insufficientStock *models.InsufficientStockError
	if !errors.As(err, &insufficientStock) {
		t.Fatalf("expected InsufficientStockError, got %T: %v", err, err)
	}
	if insufficientStock.ProductName != "Pen" {
		t.Fatalf("expected product name Pen, got %q", insufficientStock.ProductName)
	}
	if !insufficientStock.Requested.Equal(decimal.NewFromInt(5)) || !insufficientStock.Available.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected requested 5 / available 3, got %s/%s",
			insufficientStock.Requested.String(), insufficientStock.Available.String())
	}

	// The failed order must not leave a reservation behind.
	inv, err := models.GetInventory(ctx, pen.ID)
	if err != nil {
		t.Fatalf("GetInventory: %v", err)
	}
	if !inv.ReservedStock.Equal(decimal.Zero) {
		t.Fatalf("expected no reservation, got %s", inv.ReservedStock.String())
	}

	// Empty orders are rejected before touching anything.
	_, err = models.CreateOrder(ctx, &models.NewOrder{CompanyId: company.ID})
	var notSelected *models.OrderItemsNotSelectedError
	if !errors.As(err, &notSelected) {
		t.Fatalf("expected OrderItemsNotSelectedError, got %T: %v", err, err)
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("orders-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("orders-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=orders_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
