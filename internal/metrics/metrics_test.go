package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func scrape(t *testing.T) string {
	t.Helper()
	r := gin.New()
	r.GET("/metrics", Handler())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from metrics, got %d", w.Code)
	}
	return w.Body.String()
}

func TestMiddleware_LabelsByRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/leads/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/leads/abc", nil))

	body := scrape(t)
	if !strings.Contains(body, `path="/leads/:id"`) {
		t.Fatalf("expected route template label in metrics output")
	}
	if strings.Contains(body, `path="/leads/abc"`) {
		t.Fatalf("raw path must not be used as a label")
	}
}

func TestHandler_ExposesDomainCounters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	RecordMessage("sent")
	RecordAutomationFired("new_lead")
	RecordLeadCreated("manual")
	RecordStageChange("closed")

	body := scrape(t)
	for _, name := range []string{"messages_sent_total", "automations_fired_total", "leads_created_total", "lead_stage_changes_total"} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %s in metrics output", name)
		}
	}
}
