package middlewares

import (
	"net/http"
	"strconv"

	"github.com/agridatabd/coldstore_backend/utils"
	"github.com/gin-gonic/gin"
)

// TenantMiddleware copies the caller identity resolved by the gateway into
// the request context. Tenant resolution and authentication happen
// upstream; this layer only requires the headers to be present on
// app endpoints.
func TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId := c.GetHeader("x-business-id")
		if businessId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "x-business-id header is required"})
			c.Abort()
			return
		}
		ctx := utils.SetBusinessIdInContext(c.Request.Context(), businessId)

		if userId := c.GetHeader("x-user-id"); userId != "" {
			if id, err := strconv.Atoi(userId); err == nil {
				ctx = utils.SetUserIdInContext(ctx, id)
			}
		}
		if userName := c.GetHeader("x-user-name"); userName != "" {
			ctx = utils.SetUserNameInContext(ctx, userName)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
