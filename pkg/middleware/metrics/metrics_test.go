package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nimburion/crudkit/pkg/model"
	obsmetrics "github.com/nimburion/crudkit/pkg/observability/metrics"
	"github.com/nimburion/crudkit/pkg/server/router"
	ginrouter "github.com/nimburion/crudkit/pkg/server/router/gin"
	dto "github.com/prometheus/client_model/go"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRoute(t *testing.T) {
	id := primitive.NewObjectID().Hex()
	tests := map[string]string{
		"/books":                "/books",
		"/books/" + id:          "/books/:id",
		"/books/findOne":        "/books/findOne",
		"/authors/" + id + "/x": "/authors/:id/x",
	}
	for in, want := range tests {
		if got := Route(in); got != want {
			t.Errorf("Route(%q) = %q, want %q", in, got, want)
		}
	}
}

func counterValue(t *testing.T, method, route, status string) float64 {
	t.Helper()
	families, err := obsmetrics.NewRegistry().Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, family := range families {
		if family.GetName() != "http_requests_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			if labelsMatch(m, method, route, status) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(m *dto.Metric, method, route, status string) bool {
	want := map[string]string{"method": method, "route": route, "status": status}
	for _, lp := range m.GetLabel() {
		if want[lp.GetName()] != lp.GetValue() {
			return false
		}
	}
	return true
}

func TestMetrics_RecordsNormalizedRoute(t *testing.T) {
	r := ginrouter.NewRouter()
	r.Use(Metrics())
	r.GET("/gadgets/:id", func(c router.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	before := counterValue(t, http.MethodGet, "/gadgets/:id", "200")
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/gadgets/"+primitive.NewObjectID().Hex(), nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/gadgets/"+primitive.NewObjectID().Hex(), nil))

	if got := counterValue(t, http.MethodGet, "/gadgets/:id", "200"); got != before+2 {
		t.Fatalf("counter = %v, want %v", got, before+2)
	}
}

func TestMetrics_UsesExceptionStatus(t *testing.T) {
	r := ginrouter.NewRouter()
	r.Use(Metrics())
	r.GET("/gadgets-missing", func(c router.Context) error {
		return model.NewAppException(model.NewErrorInfo(model.NotFound, "", http.StatusNotFound, nil))
	})

	before := counterValue(t, http.MethodGet, "/gadgets-missing", "404")
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/gadgets-missing", nil))

	if got := counterValue(t, http.MethodGet, "/gadgets-missing", "404"); got != before+1 {
		t.Fatalf("counter = %v, want %v", got, before+1)
	}
}
