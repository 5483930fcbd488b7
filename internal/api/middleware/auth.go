package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"attendance-engine/backend/pkg/jwt"
	"attendance-engine/backend/pkg/response"
)

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取并校验身份服务签发的 Access Token
func JWTAuth(verifier *jwt.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "缺少认证头")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			response.Unauthorized(c, 10002, "认证头格式无效")
			c.Abort()
			return
		}

		claims, err := verifier.ParseToken(parts[1])
		if err != nil {
			msg := "Token 无效"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "Token 已过期"
			}
			response.Unauthorized(c, 10002, msg)
			c.Abort()
			return
		}

		if claims.TokenType != "access" {
			response.Unauthorized(c, 10002, "Token 类型无效")
			c.Abort()
			return
		}

		// 将用户信息注入上下文
		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Set("department_id", claims.DepartmentID)

		c.Next()
	}
}

// RoleAuth 角色权限中间件
// 检查当前用户是否具有指定角色之一
func RoleAuth(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("role")
		if !exists {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}

		userRole, _ := role.(string)
		for _, r := range allowedRoles {
			if userRole == r {
				c.Next()
				return
			}
		}

		response.Forbidden(c, 10003, "无权限访问")
		c.Abort()
	}
}

// DepartmentScope 部门数据范围中间件（需在 JWTAuth 之后）
// 非 fullAccessRoles 且带部门声明的调用方只能查询本部门：
// 未指定 department_id 时补为本部门，指定其他部门时返回 403
func DepartmentScope(fullAccessRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		for _, r := range fullAccessRoles {
			if role == r {
				c.Next()
				return
			}
		}

		own := c.GetString("department_id")
		if own == "" {
			c.Next()
			return
		}

		query := c.Request.URL.Query()
		requested := query.Get("department_id")
		if requested != "" && requested != own {
			response.Forbidden(c, 10003, "无权访问其他部门数据")
			c.Abort()
			return
		}
		query.Set("department_id", own)
		c.Request.URL.RawQuery = query.Encode()

		c.Next()
	}
}
