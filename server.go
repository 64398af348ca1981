package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/goormlabs/orders_backend/config"
	"github.com/goormlabs/orders_backend/middlewares"
	"github.com/goormlabs/orders_backend/models"
	"github.com/goormlabs/orders_backend/utils"
	"github.com/goormlabs/orders_backend/workflow"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

// respondDomainError translates domain failures into HTTP responses. The
// message key + args shape is consumed by the localization layer in the
// admin frontend; we never format user-facing strings here.
func respondDomainError(c *gin.Context, err error) {
	var insufficientStock *models.InsufficientStockError
	var notFound *models.OrderNotFoundError
	var notSelected *models.OrderItemsNotSelectedError
	var deliveryComplete *models.DeliveryCompleteError
	var paymentComplete *models.PaymentCompleteError
	var processing *models.OrderProcessingError

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{
			"messageKey": "order.notFound",
			"args":       []interface{}{notFound.OrderId},
		})
	case errors.As(err, &insufficientStock):
		c.JSON(http.StatusConflict, gin.H{
			"messageKey": "order.insufficientStock",
			"args": []interface{}{
				insufficientStock.ProductName,
				insufficientStock.Requested,
				insufficientStock.Available,
			},
		})
	case errors.As(err, &notSelected):
		c.JSON(http.StatusBadRequest, gin.H{
			"messageKey": "order.itemsNotSelected",
		})
	case errors.As(err, &deliveryComplete):
		c.JSON(http.StatusConflict, gin.H{
			"messageKey": deliveryComplete.MessageKey,
			"args":       deliveryComplete.Args,
		})
	case errors.As(err, &paymentComplete):
		c.JSON(http.StatusConflict, gin.H{
			"messageKey": paymentComplete.MessageKey,
			"args":       paymentComplete.Args,
		})
	case errors.As(err, &processing):
		c.JSON(http.StatusInternalServerError, gin.H{
			"messageKey": "order.processingFailed",
		})
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

func respondBindingError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func createOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewOrder
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindingError(c, err)
			return
		}
		order, err := models.CreateOrder(c.Request.Context(), &input)
		if err != nil {
			respondDomainError(c, err)
			return
		}
		c.JSON(http.StatusCreated, order)
	}
}

func getOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		order, err := models.GetOrder(c.Request.Context(), id)
		if err != nil {
			respondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func paginateOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.OrderSearchFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			respondBindingError(c, err)
			return
		}
		limit := config.SearchLimit
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		var after *string
		if v := c.Query("after"); v != "" {
			after = &v
		}
		connection, err := models.PaginateOrders(c.Request.Context(), limit, after, &filter)
		if err != nil {
			respondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, connection)
	}
}

func orderTransitionHandler(transition func(ctx context.Context, id int, actor string) (*models.Order, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		order, err := transition(c.Request.Context(), id, middlewares.ActorFromContext(c))
		if err != nil {
			respondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func generateInvoiceHandler(generator *workflow.InvoiceGenerator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		pdf, history, err := generator.GenerateInvoicePdf(c.Request.Context(), id, middlewares.ActorFromContext(c))
		if err != nil {
			respondDomainError(c, err)
			return
		}
		order, err := models.GetOrder(c.Request.Context(), id)
		if err != nil {
			respondDomainError(c, err)
			return
		}
		fileName := workflow.InvoiceFileName(order, history.PrintedAt)
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
		c.Header("X-Invoice-Id", history.InvoiceId)
		c.Data(http.StatusOK, "application/pdf", pdf)
	}
}

func invoiceHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		histories, err := models.GetInvoiceHistories(c.Request.Context(), id)
		if err != nil {
			respondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, histories)
	}
}

func receiveStockHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.ReceiveStockInput
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindingError(c, err)
			return
		}
		transaction, err := models.ReceiveStock(c.Request.Context(), &input, middlewares.ActorFromContext(c))
		if err != nil {
			respondDomainError(c, err)
			return
		}
		c.JSON(http.StatusCreated, transaction)
	}
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

// customErrorLogger logs only requests that collected errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so the platform considers the revision
	// healthy. Until DB/Redis are ready, app endpoints return 503.
	r := gin.New()
	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate app endpoints on dependency readiness.
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// In production, require an explicit allowlist via CORS_ALLOWED_ORIGINS.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", "x-user-id", "x-user-name", "x-user-email")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition", "X-Invoice-Id")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(middlewares.IdentityMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	invoiceGenerator := workflow.NewInvoiceGenerator()

	r.POST("/orders", createOrderHandler())
	r.GET("/orders", paginateOrdersHandler())
	r.GET("/orders/:id", getOrderHandler())
	r.POST("/orders/:id/start-delivery", orderTransitionHandler(models.StartDelivery))
	r.POST("/orders/:id/complete-delivery", orderTransitionHandler(models.CompleteDelivery))
	r.POST("/orders/:id/complete-payment", orderTransitionHandler(models.CompletePayment))
	r.POST("/orders/:id/invoice", generateInvoiceHandler(invoiceGenerator))
	r.GET("/orders/:id/invoice-history", invoiceHistoryHandler())

	r.POST("/companies", func(c *gin.Context) {
		var input models.NewCompany
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindingError(c, err)
			return
		}
		company, err := models.CreateCompany(c.Request.Context(), &input)
		if err != nil {
			respondDomainError(c, err)
			return
		}
		c.JSON(http.StatusCreated, company)
	})
	r.PUT("/companies/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewCompany
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindingError(c, err)
			return
		}
		company, err := models.UpdateCompany(c.Request.Context(), id, &input)
		if err != nil {
			respondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, company)
	})
	r.GET("/companies", func(c *gin.Context) {
		var name *string
		if v := c.Query("name"); v != "" {
			name = &v
		}
		companies, err := models.GetCompanies(c.Request.Context(), name)
		if err != nil {
			respondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, companies)
	})
	r.GET("/companies/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		company, err := models.GetCompany(c.Request.Context(), id)
		if err != nil {
			respondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, company)
	})
	r.GET("/companies/:id/orders", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		orders, err := models.GetOrdersByCompany(c.Request.Context(), id)
		if err != nil {
			respondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, orders)
	})
	r.GET("/companies/:id/discount-history", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		histories, err := models.GetCompanyDiscountHistories(c.Request.Context(), id)
		if err != nil {
			respondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, histories)
	})

	r.POST("/products", func(c *gin.Context) {
		var input models.NewProduct
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindingError(c, err)
			return
		}
		product, err := models.CreateProduct(c.Request.Context(), &input)
		if err != nil {
			respondDomainError(c, err)
			return
		}
		c.JSON(http.StatusCreated, product)
	})
	r.PUT("/products/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewProduct
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindingError(c, err)
			return
		}
		product, err := models.UpdateProduct(c.Request.Context(), id, &input)
		if err != nil {
			respondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	})
	r.GET("/products", func(c *gin.Context) {
		var name *string
		if v := c.Query("name"); v != "" {
			name = &v
		}
		products, err := models.GetProducts(c.Request.Context(), name)
		if err != nil {
			respondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, products)
	})

	r.POST("/inventory/receive", receiveStockHandler())
	r.GET("/inventory/low-stock", func(c *gin.Context) {
		inventories, err := models.GetLowStockInventories(c.Request.Context())
		if err != nil {
			respondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, inventories)
	})
	r.GET("/inventory/:id", func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		inventory, err := models.GetInventory(c.Request.Context(), id)
		if err != nil {
			respondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, inventory)
	})
	r.GET("/inventory/transactions", func(c *gin.Context) {
		var productId, orderId *int
		var transactionType *models.TransactionType
		if v := c.Query("product_id"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				productId = &n
			}
		}
		if v := c.Query("order_id"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				orderId = &n
			}
		}
		if v := c.Query("type"); v != "" {
			t := models.TransactionType(v)
			transactionType = &t
		}
		transactions, err := models.GetInventoryTransactions(c.Request.Context(), productId, transactionType, orderId)
		if err != nil {
			respondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, transactions)
	})

	r.NoRoute(customNotFoundHandler)

	// Start listening immediately (startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow running migrations
	// as a separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		if err := models.MigrateTable(); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Error("migration failed: " + err.Error())
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Set the session isolation level to READ COMMITTED
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		shift := attempt
		if shift > 5 {
			shift = 5
		}
		sleep := time.Second * time.Duration(1<<shift)
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port, "/")
	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Drain HTTP requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	// Close Redis (best-effort).
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
