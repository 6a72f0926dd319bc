package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"leadpipe/internal/auth"

	"github.com/gin-gonic/gin"
)

func serveAs(role string, guard gin.HandlerFunc) int {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		if role != "" {
			c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), "u", role))
		}
		c.Next()
	}, guard, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	return w.Code
}

func TestRequireAnyRole_SuperAdminBypasses(t *testing.T) {
	if code := serveAs(RoleSuperAdmin, RequireAnyRole(RoleOwner)); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRole_MissingRole(t *testing.T) {
	if code := serveAs("", RequireAnyRole(RoleOwner)); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestCanWrite_ViewerIsReadOnly(t *testing.T) {
	if code := serveAs(RoleViewer, CanWrite()); code != http.StatusForbidden {
		t.Fatalf("expected 403 for viewer write, got %d", code)
	}
	if code := serveAs(RoleViewer, CanRead()); code != http.StatusOK {
		t.Fatalf("expected 200 for viewer read, got %d", code)
	}
}

func TestCanWrite_BrokerAllowed(t *testing.T) {
	if code := serveAs(RoleBroker, CanWrite()); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}
