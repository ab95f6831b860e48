package httputil

import "github.com/gin-gonic/gin"

// RespondError отправляет сообщение об ошибке в едином формате и прекращает обработку запроса.
func RespondError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// RespondErrorWithResult дополняет ошибку частичным результатом, например собранным, но не записанным снимком.
func RespondErrorWithResult(c *gin.Context, status int, msg string, result interface{}) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "result": result})
}
