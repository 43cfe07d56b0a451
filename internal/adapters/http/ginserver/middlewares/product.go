package middlewares

import "github.com/gin-gonic/gin"

// ProductHeader marks every response as coming from an Elasticsearch node.
// The official client refuses to talk to servers without it.
func ProductHeader() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Elastic-Product", "Elasticsearch")
		c.Next()
	}
}
