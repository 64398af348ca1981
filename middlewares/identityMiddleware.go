package middlewares

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/goormlabs/orders_backend/utils"
)

// IdentityMiddleware propagates caller identity headers into the request
// context. Authentication itself happens at the gateway in front of this
// service; we only carry the identity through for audit fields.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if v := c.Request.Header.Get("x-user-id"); v != "" {
			if userId, err := strconv.Atoi(v); err == nil {
				ctx = utils.SetUserIdInContext(ctx, userId)
			}
		}
		if v := c.Request.Header.Get("x-user-name"); v != "" {
			ctx = utils.SetUserNameInContext(ctx, v)
		}
		if v := c.Request.Header.Get("x-user-email"); v != "" {
			ctx = utils.SetUserEmailInContext(ctx, v)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// ActorFromContext resolves the audit actor name, defaulting to SYSTEM when
// no identity header was supplied.
func ActorFromContext(c *gin.Context) string {
	if userName, ok := utils.GetUserNameFromContext(c.Request.Context()); ok && userName != "" {
		return userName
	}
	return "SYSTEM"
}
