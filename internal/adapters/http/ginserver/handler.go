package ginserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/vshulcz/Golastic/internal/domain"
	"github.com/vshulcz/Golastic/internal/services/indexd"
)

// CompatVersion is the server version advertised to clients.
const CompatVersion = "8.14.0"

// Handler exposes the subset of the Elasticsearch REST API used by the reporter.
type Handler struct {
	svc *indexd.Service
}

// NewHandler wires an index service into a gin-compatible HTTP handler.
func NewHandler(svc *indexd.Service) *Handler {
	return &Handler{svc: svc}
}

// Info handles `GET /`.
func (h *Handler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":         "indexd",
		"cluster_name": "golastic",
		"version": gin.H{
			"number":       CompatVersion,
			"build_flavor": "default",
		},
		"tagline": "You Know, for Search",
	})
}

// Ping proxies `GET /ping` to the storage health check.
func (h *Handler) Ping(c *gin.Context) {
	if err := h.svc.Ping(c.Request.Context()); err != nil {
		c.String(http.StatusInternalServerError, "db ping error: %v", err)
		return
	}
	c.String(http.StatusOK, "ok")
}

// PutTemplate handles `PUT|POST /_template/:name`.
func (h *Handler) PutTemplate(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		httpError(c, domain.ErrBadRequest)
		return
	}
	if err := h.svc.PutTemplate(c.Request.Context(), c.Param("name"), body); err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"acknowledged": true})
}

// GetTemplate handles `GET /_template/:name`.
func (h *Handler) GetTemplate(c *gin.Context) {
	tpl, err := h.svc.Template(c.Request.Context(), c.Param("name"))
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, map[string]json.RawMessage{tpl.Name: tpl.Body})
}

// Bulk handles `POST|PUT /_bulk` with an NDJSON body.
func (h *Handler) Bulk(c *gin.Context) {
	res, err := h.svc.Bulk(c.Request.Context(), c.Request.Body)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Search handles `GET|POST /:target/_search?q=Type:<kind>&size=<n>`.
func (h *Handler) Search(c *gin.Context) {
	size := 0
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httpError(c, domain.ErrBadRequest)
			return
		}
		size = n
	}
	res, err := h.svc.Search(c.Request.Context(), c.Param("target"), c.Query("q"), size)
	if err != nil {
		httpError(c, err)
		return
	}
	hits := res.Hits
	if hits == nil {
		hits = []domain.StoredDocument{}
	}
	c.JSON(http.StatusOK, gin.H{
		"took":      res.Took,
		"timed_out": false,
		"hits": gin.H{
			"total": gin.H{"value": len(hits), "relation": "eq"},
			"hits":  hits,
		},
	})
}

// Delete handles `DELETE /:target`.
func (h *Handler) Delete(c *gin.Context) {
	n, err := h.svc.Delete(c.Request.Context(), c.Param("target"))
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"acknowledged": true, "deleted": n})
}

// NotFound answers requests that match no route.
func (h *Handler) NotFound(c *gin.Context) {
	httpError(c, fmt.Errorf("%w: no handler for [%s] %s", domain.ErrNotFound, c.Request.Method, c.Request.URL.Path))
}

// MethodNotAllowed answers known paths requested with an unsupported method.
func (h *Handler) MethodNotAllowed(c *gin.Context) {
	writeError(c, http.StatusMethodNotAllowed, "method_not_allowed_exception",
		fmt.Sprintf("method [%s] is not allowed for %s", c.Request.Method, c.Request.URL.Path))
}

func httpError(c *gin.Context, err error) {
	var (
		status int
		kind   string
	)
	switch {
	case err == nil:
		return
	case errors.Is(err, domain.ErrNotFound):
		status, kind = http.StatusNotFound, "resource_not_found_exception"
	case errors.Is(err, domain.ErrBadRequest):
		status, kind = http.StatusBadRequest, "illegal_argument_exception"
	default:
		status, kind = http.StatusInternalServerError, "internal_server_error"
	}
	writeError(c, status, kind, err.Error())
}

// writeError renders the Elasticsearch error envelope. The body goes through
// c.Writer so response middlewares such as gzip see it.
func writeError(c *gin.Context, status int, kind, reason string) {
	c.JSON(status, gin.H{
		"error":  gin.H{"type": kind, "reason": reason},
		"status": status,
	})
}
