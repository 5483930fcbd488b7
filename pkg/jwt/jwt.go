package jwt

import (
	"errors"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"attendance-engine/backend/config"
)

var (
	ErrTokenExpired = errors.New("token 已过期")
	ErrTokenInvalid = errors.New("token 无效")
)

// Claims 上游身份服务签发的 JWT 声明
type Claims struct {
	UserID       string `json:"user_id"`
	Role         string `json:"role"`
	DepartmentID string `json:"department_id"`
	TokenType    string `json:"token_type"` // 仅接受 "access"
	jwtv5.RegisteredClaims
}

// Verifier JWT 校验器
// 本服务不签发 Token，只校验身份服务签发的 Access Token
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier 创建 JWT 校验器
func NewVerifier(cfg *config.AuthConfig) *Verifier {
	return &Verifier{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
	}
}

// ParseToken 解析并验证 Token（签名算法、有效期、签发方）
func (v *Verifier) ParseToken(tokenString string) (*Claims, error) {
	opts := []jwtv5.ParserOption{jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwtv5.WithIssuer(v.issuer))
	}

	token, err := jwtv5.ParseWithClaims(tokenString, &Claims{}, func(t *jwtv5.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
