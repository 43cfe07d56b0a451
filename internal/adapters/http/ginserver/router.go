package ginserver

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func NewRouter(h *Handler, _ *zap.Logger, middlewares ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.RedirectTrailingSlash = false
	r.RemoveExtraSlash = true

	r.HandleMethodNotAllowed = true
	r.NoMethod(h.MethodNotAllowed)
	r.NoRoute(h.NotFound)

	r.GET("/", h.Info)
	r.HEAD("/", h.Info)
	r.GET("/ping", h.Ping)

	r.PUT("/_template/:name", h.PutTemplate)
	r.POST("/_template/:name", h.PutTemplate)
	r.GET("/_template/:name", h.GetTemplate)

	r.POST("/_bulk", h.Bulk)
	r.PUT("/_bulk", h.Bulk)

	r.GET("/:target/_search", h.Search)
	r.POST("/:target/_search", h.Search)
	r.DELETE("/:target", h.Delete)

	return r
}
