package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader - HTTP-заголовок с идентификатором запроса
const RequestIDHeader = "X-Request-ID"

const requestIDContextKey = "request_id"

// RequestIDMiddleware добавляет X-Request-ID к каждому ответу.
// Если клиент прислал свой, он переиспользуется, иначе генерируется новый UUID.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDContextKey, id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID возвращает идентификатор запроса из контекста gin или пустую строку
func GetRequestID(c *gin.Context) string {
	if id, ok := c.Get(requestIDContextKey); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
