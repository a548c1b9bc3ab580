package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/d60-Lab/bcc-marketplace/internal/service"
	"github.com/d60-Lab/bcc-marketplace/pkg/response"
)

const (
	SessionHeader     = "X-Session-Token"
	SessionContextKey = "session"
)

var ErrInvalidToken = errors.New("invalid session token")

// SessionTokens 签发和校验会话 token（HS256，sub 为会话 ID）
// 只用于找回匿名购物会话，不是登录凭证
type SessionTokens struct {
	secret []byte
	ttl    time.Duration
}

func NewSessionTokens(secret string, ttl time.Duration) *SessionTokens {
	return &SessionTokens{secret: []byte(secret), ttl: ttl}
}

func (t *SessionTokens) Issue(sessionID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *SessionTokens) Parse(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func tokenFrom(c *gin.Context) string {
	if tok := c.GetHeader(SessionHeader); tok != "" {
		return tok
	}
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

// Session 解析会话 token；缺失、失效或会话已被清理时新建会话并下发新 token
func Session(store *service.SessionStore, tokens *SessionTokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		var sess *service.Session
		if tok := tokenFrom(c); tok != "" {
			if id, err := tokens.Parse(tok); err == nil {
				sess, _ = store.Get(id)
			}
		}
		if sess == nil {
			sess = store.Create()
		}

		token, err := tokens.Issue(sess.ID)
		if err != nil {
			response.InternalError(c, err)
			return
		}
		c.Header(SessionHeader, token)
		c.Set(SessionContextKey, sess)
		c.Next()
	}
}

// SessionFrom 取出中间件放入的会话
func SessionFrom(c *gin.Context) (*service.Session, bool) {
	v, ok := c.Get(SessionContextKey)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*service.Session)
	return sess, ok
}
