package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solatis/rulekeeper/internal/core/config"
	"github.com/solatis/rulekeeper/internal/core/metrics"
	"github.com/solatis/rulekeeper/internal/rules"
	"github.com/solatis/rulekeeper/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func adultRule() rules.Rule {
	return rules.NewRule("adult", rules.Field("age", rules.OpGreaterEqual, 18), "must be an adult")
}

func namedRule() rules.Rule {
	return rules.NewRule("named", rules.Field("name", rules.OpEqual, "bob"), "name must be bob")
}

func testConfig(mutate ...func(*config.RuleAPIConfig)) *config.RuleAPIConfig {
	cfg := config.DefaultRuleAPIConfig()
	for _, fn := range mutate {
		fn(cfg)
	}
	return cfg
}

func newTestService(t *testing.T, s RuleStore, collector *metrics.Collector, mutate ...func(*config.RuleAPIConfig)) *Service {
	t.Helper()
	svc, err := NewService(s, collector, zap.NewNop(), testConfig(mutate...))
	require.NoError(t, err)
	return svc
}

func newTestStore(t *testing.T, initial ...rules.Rule) *store.Store {
	t.Helper()
	s, err := store.New(initial...)
	require.NoError(t, err)
	return s
}

// newTestRouter serves a real store seeded with initial.
func newTestRouter(t *testing.T, initial ...rules.Rule) (*gin.Engine, *store.Store) {
	t.Helper()
	s := newTestStore(t, initial...)
	return NewRouter(newTestService(t, s, nil), zap.NewNop(), nil), s
}

func httptestRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
