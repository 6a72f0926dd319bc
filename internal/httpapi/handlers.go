package httpapi

import (
	"net/http"
	"strings"
	"time"

	"leadpipe/internal/auth"
	"leadpipe/internal/automation"
	"leadpipe/internal/crm"
	"leadpipe/internal/leads"
	"leadpipe/internal/rbac"
	"leadpipe/internal/reporting"
	"leadpipe/internal/settings"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth     *auth.Manager
	App      *crm.App
	Settings *settings.Service

	// AllowLogin enables the credential-less token endpoints outside production.
	AllowLogin bool
}

// Register mounts every authenticated route on g. Role checks are per route.
func (h Handlers) Register(g *gin.RouterGroup) {
	read, write := rbac.CanRead(), rbac.CanWrite()

	g.GET("/leads", read, h.ListLeads)
	g.POST("/leads", write, h.CreateLead)
	g.POST("/leads/import", write, h.ImportLeads)
	g.GET("/leads/:id", read, h.GetLead)
	g.PATCH("/leads/:id", write, h.EditLead)
	g.PUT("/leads/:id/status", write, h.MoveLead)
	g.DELETE("/leads/:id", write, h.DeleteLead)
	g.GET("/leads/:id/activities", read, h.LeadActivities)

	g.GET("/activities", read, h.ListActivities)
	g.GET("/activities/summary", read, h.ActivitySummary)
	g.GET("/pipeline", read, h.Pipeline)
	g.GET("/stages", read, h.Stages)

	g.GET("/rules", read, h.ListRules)
	g.POST("/rules", write, h.CreateRule)
	g.POST("/rules/:id/toggle", write, h.ToggleRule)
	g.GET("/templates", read, h.ListTemplates)

	g.POST("/messages/bulk", write, h.BulkSend)
	g.GET("/notification", read, h.Notification)

	g.GET("/settings", read, h.GetSettings)
	g.PUT("/settings", write, h.UpdateSettings)
}

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	if !h.AllowLogin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "login disabled"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || !rbac.IsKnown(req.Role) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id and a known role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
	Role         string `json:"role"`
}

func (h Handlers) Refresh(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	if !h.AllowLogin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "login disabled"})
		return
	}
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" || !rbac.IsKnown(req.Role) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "refresh_token and a known role required"})
		return
	}
	pair, err := h.Auth.Refresh(req.RefreshToken, req.Role, time.Now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	c.JSON(http.StatusOK, pair)
}

// --- Leads ---

func (h Handlers) ListLeads(c *gin.Context) {
	f := leads.Filter{
		Query:  strings.TrimSpace(c.Query("q")),
		Status: leads.Stage(strings.TrimSpace(c.Query("status"))),
	}
	out, err := h.App.Leads(c.Request.Context(), f)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leads": out})
}

func (h Handlers) CreateLead(c *gin.Context) {
	var in leads.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	l, err := h.App.CreateLead(c.Request.Context(), in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, l)
}

func (h Handlers) GetLead(c *gin.Context) {
	l, err := h.App.Lead(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h Handlers) EditLead(c *gin.Context) {
	var p leads.Patch
	if err := c.ShouldBindJSON(&p); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	l, err := h.App.EditLead(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

type moveLeadRequest struct {
	Status leads.Stage `json:"status"`
}

func (h Handlers) MoveLead(c *gin.Context) {
	var req moveLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "status required"})
		return
	}
	l, err := h.App.MoveLead(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h Handlers) DeleteLead(c *gin.Context) {
	if err := h.App.DeleteLead(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type importLeadsRequest struct {
	Rows []leads.ImportRow `json:"rows"`
}

// ImportLeads accepts a multipart CSV upload in field "file", or a JSON body
// with already parsed rows.
func (h Handlers) ImportLeads(c *gin.Context) {
	ctx := c.Request.Context()

	if strings.HasPrefix(c.ContentType(), "application/json") {
		var req importLeadsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		batch, err := h.App.ImportLeads(ctx, req.Rows)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, crm.ImportSummary{Leads: batch, Added: len(batch)})
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "csv file required in field 'file'"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}
	defer f.Close()

	sum, err := h.App.ImportCSV(ctx, f)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sum)
}

func (h Handlers) LeadActivities(c *gin.Context) {
	out, err := h.App.Activities(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": out})
}

// --- Activity & reporting ---

func (h Handlers) ListActivities(c *gin.Context) {
	out, err := h.App.Activities(c.Request.Context(), "")
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": out})
}

// ActivitySummary expects RFC 3339 "from" and "to" query parameters.
func (h Handlers) ActivitySummary(c *gin.Context) {
	from, errFrom := time.Parse(time.RFC3339, c.Query("from"))
	to, errTo := time.Parse(time.RFC3339, c.Query("to"))
	if errFrom != nil || errTo != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from and to must be RFC 3339 timestamps"})
		return
	}
	out, err := h.App.ActivitySummary(c.Request.Context(), reporting.ActivitySummaryRequest{
		Range: reporting.TimeRange{From: from, To: to},
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) Pipeline(c *gin.Context) {
	out, err := h.App.Pipeline(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) Stages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"stages": h.App.Columns()})
}

// --- Automation ---

func (h Handlers) ListRules(c *gin.Context) {
	out, err := h.App.Rules(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": out})
}

func (h Handlers) CreateRule(c *gin.Context) {
	var in automation.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	r, err := h.App.CreateRule(c.Request.Context(), in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h Handlers) ToggleRule(c *gin.Context) {
	r, err := h.App.ToggleRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h Handlers) ListTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"templates": h.App.Templates()})
}

// --- Messaging ---

type bulkSendRequest struct {
	LeadIDs    []string `json:"lead_ids"`
	TemplateID string   `json:"template_id"`
}

func (h Handlers) BulkSend(c *gin.Context) {
	var req bulkSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	rep, err := h.App.BulkSend(c.Request.Context(), req.LeadIDs, req.TemplateID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// Notification returns the pending notification, or 204 when there is none.
func (h Handlers) Notification(c *gin.Context) {
	n, ok := h.App.Notification()
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, n)
}

// --- Settings ---

func (h Handlers) GetSettings(c *gin.Context) {
	if h.Settings == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "settings not configured"})
		return
	}
	s, err := h.Settings.Get(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Redacted())
}

func (h Handlers) UpdateSettings(c *gin.Context) {
	if h.Settings == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "settings not configured"})
		return
	}
	var u settings.Update
	if err := c.ShouldBindJSON(&u); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	s, err := h.Settings.Update(c.Request.Context(), u)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Redacted())
}
