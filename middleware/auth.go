package middleware

import (
	"net/http"
	"strings"

	"anycastweb/config"
	"anycastweb/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const userKey = "current_user"

// AuthRequired 校验Bearer令牌并加载当前用户
func AuthRequired(db *gorm.DB, cfg *config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": 401,
				"msg":  "缺少认证凭据",
			})
			return
		}
		userID, err := ParseToken(cfg, strings.TrimPrefix(header, "Bearer "), TokenAccess)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": 401,
				"msg":  "令牌无效或已过期",
			})
			return
		}
		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": 401,
				"msg":  "用户不存在",
			})
			return
		}
		c.Set(userKey, &user)
		c.Next()
	}
}

// RequireRole 管理子树的角色检查，需在AuthRequired之后使用
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": 401,
				"msg":  "缺少认证凭据",
			})
			return
		}
		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"code": 403,
			"msg":  "权限不足",
		})
	}
}

func CurrentUser(c *gin.Context) *models.User {
	value, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}
