package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/solatis/rulekeeper/internal/rules"
	"github.com/solatis/rulekeeper/internal/types"
)

/*
 * REST surface.
 *
 *   GET    /rules              list rules                 200
 *   GET    /rules/:id          fetch one rule             200 / 404
 *   POST   /rules              create from body           201 / 400
 *   DELETE /rules/:id          delete, always succeeds    200
 *   PUT    /rules/:id          replace (and maybe rename) 200 / 404
 *   POST   /evaluate?rules=a,b evaluate body document     200 / 404 / 400
 *   GET    /healthz            store health               200 / 503
 *   GET    /metrics            Prometheus exposition      200
 *
 * Responses are indented JSON; errors are {"error": {"message": "..."}}.
 */

// RuleHandler serves the rule routes.
type RuleHandler struct {
	svc *Service
}

// NewRuleHandler builds the REST handler for svc.
func NewRuleHandler(svc *Service) *RuleHandler {
	return &RuleHandler{svc: svc}
}

// RegisterRoutes mounts the rule and evaluate routes on r.
func (h *RuleHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/rules", h.listRules)
	r.GET("/rules/:id", h.getRule)
	r.POST("/rules", h.createRule)
	r.DELETE("/rules/:id", h.deleteRule)
	r.PUT("/rules/:id", h.updateRule)
	r.POST("/evaluate", h.evaluate)
}

// NewRouter builds the gin engine with request id, logging, recovery and
// timeout middleware. metricsHandler may be nil.
func NewRouter(svc *Service, logger *zap.Logger, metricsHandler http.Handler) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(
		RequestID(),
		Logger(logger),
		Recovery(logger),
		Timeout(svc.Config().RequestTimeout),
	)

	NewRuleHandler(svc).RegisterRoutes(r)

	r.GET("/healthz", func(c *gin.Context) {
		if !svc.Healthy() {
			c.IndentedJSON(http.StatusServiceUnavailable, gin.H{"status": "NOT_SERVING"})
			return
		}
		c.IndentedJSON(http.StatusOK, gin.H{"status": "SERVING"})
	})
	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	r.NoRoute(func(c *gin.Context) {
		c.IndentedJSON(http.StatusNotFound, newErrorResponse(fmt.Errorf("no route for %s %s", c.Request.Method, c.Request.URL.Path)))
	})
	return r
}

// DeleteResponse is the body of DELETE /rules/:id.
type DeleteResponse struct {
	Deleted *rules.Rule `json:"deleted"`
}

func (h *RuleHandler) listRules(c *gin.Context) {
	out, err := h.svc.ListRules(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, out)
}

func (h *RuleHandler) getRule(c *gin.Context) {
	out, err := h.svc.GetRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, out)
}

func (h *RuleHandler) createRule(c *gin.Context) {
	rule, err := h.readRule(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if err := h.svc.CreateRule(c.Request.Context(), rule); err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusCreated, rule)
}

func (h *RuleHandler) deleteRule(c *gin.Context) {
	removed, err := h.svc.DeleteRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, DeleteResponse{Deleted: removed})
}

func (h *RuleHandler) updateRule(c *gin.Context) {
	rule, err := h.readRule(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if _, err := h.svc.UpdateRule(c.Request.Context(), c.Param("id"), rule); err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, rule)
}

func (h *RuleHandler) evaluate(c *gin.Context) {
	ids := ParseRuleIDs(c.Query("rules"))

	body, err := h.readBody(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	doc, err := types.DecodeDocument(body)
	if err != nil {
		abortWithError(c, badRequest(err))
		return
	}

	out, err := h.svc.Evaluate(c.Request.Context(), ids, doc)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, out)
}

// ParseRuleIDs splits a comma-separated id list. An empty list yields no ids;
// ids are taken verbatim, so "a,,b" names the empty id.
func ParseRuleIDs(raw string) []types.RuleName {
	if raw == "" {
		return []types.RuleName{}
	}
	return strings.Split(raw, ",")
}

func (h *RuleHandler) readBody(c *gin.Context) ([]byte, error) {
	limited := http.MaxBytesReader(c.Writer, c.Request.Body, h.svc.Config().MaxBodyBytes)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, badRequest(fmt.Errorf("failed to read request body: %w", err))
	}
	return body, nil
}

func (h *RuleHandler) readRule(c *gin.Context) (rules.Rule, error) {
	body, err := h.readBody(c)
	if err != nil {
		return rules.Rule{}, err
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	var rule rules.Rule
	if err := dec.Decode(&rule); err != nil {
		return rules.Rule{}, badRequest(fmt.Errorf("invalid rule: %w", err))
	}
	if dec.More() {
		return rules.Rule{}, badRequest(fmt.Errorf("invalid rule: unexpected data after rule object"))
	}
	return rule, nil
}

func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
	c.IndentedJSON(HTTPStatus(err), newErrorResponse(err))
}

// RequestID assigns every request an id, honouring a valid client-supplied
// X-Request-ID, and echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := requestIDOrNew(c.GetHeader(RequestIDHeader))
		c.Request = c.Request.WithContext(WithRequestID(c.Request.Context(), id))
		c.Header(RequestIDHeader, string(id))
		c.Next()
	}
}

// Logger logs every request after it completes.
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.String("user-agent", c.Request.UserAgent()),
		}
		if id, ok := RequestIDFrom(c.Request.Context()); ok {
			fields = append(fields, zap.String("request_id", string(id)))
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("request failed", append(fields, zap.Strings("errors", c.Errors.Errors()))...)
			return
		}
		logger.Info("request processed", fields...)
	}
}

// Recovery turns a panic into a 500 response. A panic under the store's
// write lock also poisons the store, so later requests fail with 500 too.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic while handling request",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
		)
		c.Abort()
		c.IndentedJSON(http.StatusInternalServerError, newErrorResponse(fmt.Errorf("internal error")))
	})
}

// Timeout bounds the request context. Handlers observe it between store
// operations; the store itself is never interrupted.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
