package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/solatis/rulekeeper/internal/core/config"
	"github.com/solatis/rulekeeper/internal/core/metrics"
	"github.com/solatis/rulekeeper/internal/rules"
	"github.com/solatis/rulekeeper/internal/store"
)

const adultJSON = `{"name":"adult","predicate":{"path":"age","operator":">=","value":18},"message":"must be an adult"}`

func errorMessage(t *testing.T, body []byte) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp.Error.Message
}

func decodeEvaluation(t *testing.T, body []byte) store.Evaluation {
	t.Helper()
	var out store.Evaluation
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestRuleRoutes_CreateAndGet(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodPost, "/rules", adultJSON)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(r, http.MethodGet, "/rules/adult", "")
	require.Equal(t, http.StatusOK, w.Code)

	got, err := rules.ParseRule(w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "adult", got.Name)
	assert.Equal(t, "must be an adult", got.Message)
	assert.Equal(t, rules.OpGreaterEqual, got.Predicate.Raw.Operator)
}

func TestRuleRoutes_CreateDuplicate(t *testing.T) {
	r, _ := newTestRouter(t, adultRule())

	w := do(r, http.MethodPost, "/rules", adultJSON)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "a rule with id adult already exists", errorMessage(t, w.Body.Bytes()))
}

func TestRuleRoutes_CreateMalformed(t *testing.T) {
	r, s := newTestRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"missing message", `{"name":"x","predicate":{"path":"a","operator":"==","value":1}}`},
		{"unknown operator", `{"name":"x","predicate":{"path":"a","operator":"~","value":1},"message":"m"}`},
		{"mixed predicate", `{"name":"x","predicate":{"path":"a","operator":"==","value":1,"not":{}},"message":"m"}`},
		{"trailing data", adultJSON + `{}`},
		{"empty name", `{"name":"","predicate":{"path":"a","operator":"==","value":1},"message":"m"}`},
		{"duplicate key", `{"name":"x","name":"y","predicate":{"path":"a","operator":"==","value":1},"message":"m"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/rules", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.NotEmpty(t, errorMessage(t, w.Body.Bytes()))
		})
	}
	assert.Equal(t, 0, s.Len())
}

func TestRuleRoutes_GetMissing(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodGet, "/rules/ghost", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "a rule with id ghost does not exist", errorMessage(t, w.Body.Bytes()))
}

func TestRuleRoutes_ListSorted(t *testing.T) {
	r, _ := newTestRouter(t, namedRule(), adultRule())

	w := do(r, http.MethodGet, "/rules", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got []rules.Rule
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "adult", got[0].Name)
	assert.Equal(t, "named", got[1].Name)
}

func TestRuleRoutes_ListEmpty(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodGet, "/rules", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestRuleRoutes_Delete(t *testing.T) {
	r, s := newTestRouter(t, adultRule())

	w := do(r, http.MethodDelete, "/rules/adult", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Deleted *rules.Rule `json:"deleted"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Deleted)
	assert.Equal(t, "adult", resp.Deleted.Name)
	assert.Equal(t, 0, s.Len())

	// Deleting again still succeeds.
	w = do(r, http.MethodDelete, "/rules/adult", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deleted":null}`, w.Body.String())
}

func TestRuleRoutes_UpdateRenames(t *testing.T) {
	r, s := newTestRouter(t, adultRule())

	body := `{"name":"grown-up","predicate":{"path":"age","operator":"greater","value":20},"message":"over twenty"}`
	w := do(r, http.MethodPut, "/rules/adult", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/rules/adult", "").Code)

	got, err := s.Get("grown-up")
	require.NoError(t, err)
	assert.Equal(t, "over twenty", got.Message)
	assert.Equal(t, 1, s.Len())
}

func TestRuleRoutes_UpdateMissing(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodPut, "/rules/adult", adultJSON)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "a rule with id adult does not exist", errorMessage(t, w.Body.Bytes()))
}

func TestEvaluate(t *testing.T) {
	r, _ := newTestRouter(t, adultRule(), namedRule())

	t.Run("all pass", func(t *testing.T) {
		w := do(r, http.MethodPost, "/evaluate?rules=adult,named", `{"age":30,"name":"bob"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		out := decodeEvaluation(t, w.Body.Bytes())
		assert.Equal(t, store.Pass, out.Result)
		assert.Equal(t, []store.Reason{
			{Rule: "adult", Requirement: "must be an adult", Evaluation: store.Pass},
			{Rule: "named", Requirement: "name must be bob", Evaluation: store.Pass},
		}, out.Reasons)
	})

	t.Run("one fails", func(t *testing.T) {
		w := do(r, http.MethodPost, "/evaluate?rules=named,adult", `{"age":30,"name":"alice"}`)
		require.Equal(t, http.StatusOK, w.Code)

		out := decodeEvaluation(t, w.Body.Bytes())
		assert.Equal(t, store.Fail, out.Result)
		require.Len(t, out.Reasons, 2)
		assert.Equal(t, "named", out.Reasons[0].Rule)
		assert.Equal(t, store.Fail, out.Reasons[0].Evaluation)
		assert.Equal(t, store.Pass, out.Reasons[1].Evaluation)
	})

	t.Run("wire format", func(t *testing.T) {
		w := do(r, http.MethodPost, "/evaluate?rules=adult", `{"age":3}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"result":"FAIL","reasons":[{"rule":"adult","requirement":"must be an adult","evaluation":"FAIL"}]}`, w.Body.String())
	})

	t.Run("no rules passes", func(t *testing.T) {
		w := do(r, http.MethodPost, "/evaluate", `{}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"result":"PASS","reasons":[]}`, w.Body.String())
	})

	t.Run("missing rule", func(t *testing.T) {
		w := do(r, http.MethodPost, "/evaluate?rules=adult,ghost", `{"age":30}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "a rule with id ghost does not exist", errorMessage(t, w.Body.Bytes()))
	})

	t.Run("type mismatch", func(t *testing.T) {
		w := do(r, http.MethodPost, "/evaluate?rules=adult", `{"age":"thirty"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t,
			"failed to evaluate rule adult: cannot compare string with number using operator GreaterEqual",
			errorMessage(t, w.Body.Bytes()))
	})

	t.Run("path through scalar", func(t *testing.T) {
		deep := rules.NewRule("deep", rules.Field("a.b", rules.OpEqual, 1), "deep")
		r, _ := newTestRouter(t, deep)
		w := do(r, http.MethodPost, "/evaluate?rules=deep", `{"a":5}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "failed to evaluate rule deep: cannot read field `b` of type number", errorMessage(t, w.Body.Bytes()))
	})

	t.Run("malformed document", func(t *testing.T) {
		w := do(r, http.MethodPost, "/evaluate?rules=adult", `{"age":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestEvaluate_BatchTooLarge(t *testing.T) {
	s := newTestStore(t, adultRule())
	svc := newTestService(t, s, nil, func(c *config.RuleAPIConfig) { c.MaxBatchSize = 1 })
	r := NewRouter(svc, zap.NewNop(), nil)

	w := do(r, http.MethodPost, "/evaluate?rules=adult,adult", `{"age":30}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorMessage(t, w.Body.Bytes()), "limit is 1")
}

func TestBodyTooLarge(t *testing.T) {
	s := newTestStore(t)
	svc := newTestService(t, s, nil, func(c *config.RuleAPIConfig) { c.MaxBodyBytes = 16 })
	r := NewRouter(svc, zap.NewNop(), nil)

	w := do(r, http.MethodPost, "/rules", adultJSON)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, 0, s.Len())
}

func TestRequestIDHeader(t *testing.T) {
	r, _ := newTestRouter(t)

	t.Run("generated", func(t *testing.T) {
		w := do(r, http.MethodGet, "/rules", "")
		id := w.Header().Get(RequestIDHeader)
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
	})

	t.Run("echoed", func(t *testing.T) {
		supplied := uuid.NewString()
		req := httptestRequest(http.MethodGet, "/rules")
		req.Header.Set(RequestIDHeader, supplied)
		w := serve(r, req)
		assert.Equal(t, supplied, w.Header().Get(RequestIDHeader))
	})

	t.Run("invalid replaced", func(t *testing.T) {
		req := httptestRequest(http.MethodGet, "/rules")
		req.Header.Set(RequestIDHeader, "not-a-uuid\nforged log line")
		w := serve(r, req)
		got := w.Header().Get(RequestIDHeader)
		assert.False(t, strings.Contains(got, "forged"))
		_, err := uuid.Parse(got)
		assert.NoError(t, err)
	})
}

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"SERVING"}`, w.Body.String())
}

func TestNoRoute(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "no route for GET /nowhere", errorMessage(t, w.Body.Bytes()))
}

func TestPoisonedStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := NewMockRuleStore(ctrl)
	mockStore.EXPECT().Len().Return(0).AnyTimes()
	mockStore.EXPECT().GetAll().Return(nil, store.ErrUnknown)
	mockStore.EXPECT().Poisoned().Return(true)

	r := NewRouter(newTestService(t, mockStore, nil), zap.NewNop(), nil)

	w := do(r, http.MethodGet, "/rules", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "an unknown error occurred: rule store poisoned", errorMessage(t, w.Body.Bytes()))

	w = do(r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRecovery(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := NewMockRuleStore(ctrl)
	mockStore.EXPECT().Len().Return(0).AnyTimes()
	mockStore.EXPECT().Get("boom").DoAndReturn(func(string) (rules.Rule, error) {
		panic("store exploded")
	})

	r := NewRouter(newTestService(t, mockStore, nil), zap.NewNop(), nil)

	w := do(r, http.MethodGet, "/rules/boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", errorMessage(t, w.Body.Bytes()))
}

func TestMetricsEndpoint(t *testing.T) {
	collector := metrics.NewCollector(nil)
	s := newTestStore(t, adultRule())
	r := NewRouter(newTestService(t, s, collector), zap.NewNop(), collector.Handler())

	require.Equal(t, http.StatusOK, do(r, http.MethodPost, "/evaluate?rules=adult", `{"age":40}`).Code)

	w := do(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `rulekeeper_operations_total{operation="evaluate",outcome="ok"} 1`)
	assert.Contains(t, body, `rulekeeper_rule_evaluations_total{result="PASS"} 1`)
	assert.NotContains(t, body, `rule="adult"`)
	assert.Contains(t, body, `rulekeeper_rules 1`)
}

func TestParseRuleIDs(t *testing.T) {
	assert.Equal(t, []string{}, ParseRuleIDs(""))
	assert.Equal(t, []string{"a"}, ParseRuleIDs("a"))
	assert.Equal(t, []string{"a", "", "b"}, ParseRuleIDs("a,,b"))
}
