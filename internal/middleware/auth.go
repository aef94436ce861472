// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"neomate-go/internal/repository"
	"neomate-go/pkg/token"
)

// AuthMiddleware 创建一个 Gin 中间件，用于 JWT 认证。
// 它会从请求头中提取 token，验证签名与黑名单状态，
// 并将用户 ID 和 claims 存入 Gin 的上下文中。
func AuthMiddleware(jwtManager *token.JWTManager, tokenStore repository.TokenStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractBearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed authorization header"})
			return
		}

		claims, err := jwtManager.VerifyToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		// 已登出的 token 在过期前会留在黑名单中
		blacklisted, err := tokenStore.IsBlacklisted(c.Request.Context(), tokenString)
		if err != nil || blacklisted {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("claims", claims)
		c.Set("token", tokenString)

		c.Next()
	}
}

// extractBearerToken 从 Authorization 头中取出 Bearer token。
// WebSocket 升级请求无法携带自定义头，这里容忍用 query 参数传 token。
func extractBearerToken(c *gin.Context) string {
	const bearerPrefix = "Bearer "
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, bearerPrefix) {
		return strings.TrimPrefix(authHeader, bearerPrefix)
	}
	return c.Query("token")
}

// CurrentUserID 返回 AuthMiddleware 存入上下文的用户 ID。
func CurrentUserID(c *gin.Context) string {
	return c.GetString("userID")
}
