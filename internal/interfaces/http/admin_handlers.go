package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/expenseflow/backend/internal/application/service"
	"github.com/expenseflow/backend/internal/domain/entity"
	"github.com/expenseflow/backend/internal/domain/workflow"
)

// AdminHandlers contains the HTTP request handlers for the admin-only API
type AdminHandlers struct {
	flowAdmin       *service.FlowAdminService
	overrideService *service.OverrideService
	expenseService  service.ExpenseService
	reportService   *service.ReportService
	logger          Logger
}

// NewAdminHandlers creates a new AdminHandlers instance
func NewAdminHandlers(
	flowAdmin *service.FlowAdminService,
	overrideService *service.OverrideService,
	expenseService service.ExpenseService,
	reportService *service.ReportService,
	logger Logger,
) *AdminHandlers {
	return &AdminHandlers{
		flowAdmin:       flowAdmin,
		overrideService: overrideService,
		expenseService:  expenseService,
		reportService:   reportService,
		logger:          logger,
	}
}

func (h *AdminHandlers) fail(c *gin.Context, err error, msg string) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(msg, "error", err)
		c.JSON(status, Response{Success: false, Error: msg})
		return
	}
	c.JSON(status, Response{Success: false, Error: err.Error()})
}

// FlowRequest is the body for creating an approval flow
type FlowRequest struct {
	Name        string        `json:"name" binding:"required"`
	Description string        `json:"description"`
	Steps       []entity.Step `json:"steps" binding:"required"`
	Rule        *entity.Rule  `json:"rule"`
	RuleID      string        `json:"rule_id"`
	IsDefault   bool          `json:"is_default"`
	Active      *bool         `json:"active"`
}

// CreateFlow handles POST /api/admin/approval-flows
func (h *AdminHandlers) CreateFlow(c *gin.Context) {
	var req FlowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	flow, err := h.flowAdmin.CreateFlow(c.Request.Context(), identityFrom(c).CompanyID, entity.ApprovalFlow{
		Name:        req.Name,
		Description: req.Description,
		Steps:       req.Steps,
		Rule:        req.Rule,
		RuleID:      req.RuleID,
		IsDefault:   req.IsDefault,
		Active:      active,
	})
	if err != nil {
		h.fail(c, err, "failed to create flow")
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: flow})
}

// ListFlows handles GET /api/admin/approval-flows
func (h *AdminHandlers) ListFlows(c *gin.Context) {
	flows, err := h.flowAdmin.ListFlows(c.Request.Context(), identityFrom(c).CompanyID)
	if err != nil {
		h.fail(c, err, "failed to list flows")
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: flows})
}

// GetFlow handles GET /api/admin/approval-flows/:id
func (h *AdminHandlers) GetFlow(c *gin.Context) {
	flow, err := h.flowAdmin.GetFlow(c.Request.Context(), identityFrom(c).CompanyID, c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to get flow")
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: flow})
}

// FlowUpdateRequest is the body for PATCH /api/admin/approval-flows/:id
type FlowUpdateRequest struct {
	Name        *string       `json:"name"`
	Description *string       `json:"description"`
	Steps       []entity.Step `json:"steps"`
	Rule        *entity.Rule  `json:"rule"`
	RuleID      *string       `json:"rule_id"`
	ClearRule   bool          `json:"clear_rule"`
	IsDefault   *bool         `json:"is_default"`
	Active      *bool         `json:"active"`
}

// UpdateFlow handles PATCH /api/admin/approval-flows/:id
func (h *AdminHandlers) UpdateFlow(c *gin.Context) {
	var req FlowUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	flow, err := h.flowAdmin.UpdateFlow(c.Request.Context(), identityFrom(c).CompanyID, c.Param("id"), service.FlowUpdate{
		Name:        req.Name,
		Description: req.Description,
		Steps:       req.Steps,
		Rule:        req.Rule,
		RuleID:      req.RuleID,
		ClearRule:   req.ClearRule,
		IsDefault:   req.IsDefault,
		Active:      req.Active,
	})
	if err != nil {
		h.fail(c, err, "failed to update flow")
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: flow})
}

// DeleteFlow handles DELETE /api/admin/approval-flows/:id
func (h *AdminHandlers) DeleteFlow(c *gin.Context) {
	if err := h.flowAdmin.DeleteFlow(c.Request.Context(), identityFrom(c).CompanyID, c.Param("id")); err != nil {
		h.fail(c, err, "failed to delete flow")
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"message": "flow deleted"}})
}

// RuleRequest is the body for creating an approval rule
type RuleRequest struct {
	Name                string `json:"name" binding:"required"`
	Type                string `json:"type" binding:"required"`
	PercentageThreshold int    `json:"percentage_threshold"`
	SpecificApprover    string `json:"specific_approver"`
	Description         string `json:"description"`
	Enabled             *bool  `json:"enabled"`
}

// CreateRule handles POST /api/admin/approval-rules
func (h *AdminHandlers) CreateRule(c *gin.Context) {
	var req RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	rule, err := h.flowAdmin.CreateRule(c.Request.Context(), identityFrom(c).CompanyID, entity.Rule{
		Name:                req.Name,
		Type:                entity.RuleType(req.Type),
		PercentageThreshold: req.PercentageThreshold,
		SpecificApprover:    req.SpecificApprover,
		Description:         req.Description,
		Enabled:             enabled,
	})
	if err != nil {
		h.fail(c, err, "failed to create rule")
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: rule})
}

// ListRules handles GET /api/admin/approval-rules
func (h *AdminHandlers) ListRules(c *gin.Context) {
	rules, err := h.flowAdmin.ListRules(c.Request.Context(), identityFrom(c).CompanyID)
	if err != nil {
		h.fail(c, err, "failed to list rules")
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: rules})
}

// RuleUpdateRequest is the body for PATCH /api/admin/approval-rules/:id
type RuleUpdateRequest struct {
	Name                *string `json:"name"`
	Type                *string `json:"type"`
	PercentageThreshold *int    `json:"percentage_threshold"`
	SpecificApprover    *string `json:"specific_approver"`
	Description         *string `json:"description"`
	Enabled             *bool   `json:"enabled"`
}

// UpdateRule handles PATCH /api/admin/approval-rules/:id
func (h *AdminHandlers) UpdateRule(c *gin.Context) {
	var req RuleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	upd := service.RuleUpdate{
		Name:                req.Name,
		PercentageThreshold: req.PercentageThreshold,
		SpecificApprover:    req.SpecificApprover,
		Description:         req.Description,
		Enabled:             req.Enabled,
	}
	if req.Type != nil {
		t := entity.RuleType(*req.Type)
		upd.Type = &t
	}

	rule, err := h.flowAdmin.UpdateRule(c.Request.Context(), identityFrom(c).CompanyID, c.Param("id"), upd)
	if err != nil {
		h.fail(c, err, "failed to update rule")
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: rule})
}

// DeleteRule handles DELETE /api/admin/approval-rules/:id
func (h *AdminHandlers) DeleteRule(c *gin.Context) {
	if err := h.flowAdmin.DeleteRule(c.Request.Context(), identityFrom(c).CompanyID, c.Param("id")); err != nil {
		h.fail(c, err, "failed to delete rule")
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"message": "rule deleted"}})
}

// ListCompanyExpenses handles GET /api/admin/expenses
func (h *AdminHandlers) ListCompanyExpenses(c *gin.Context) {
	var req ListExpensesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid query parameters"})
		return
	}

	id := identityFrom(c)
	expenses, err := h.expenseService.ListExpenses(c.Request.Context(), service.ListExpensesQuery{
		CompanyID: id.CompanyID,
		UserID:    id.UserID,
		Role:      id.Role,
		Scope:     "company",
		Status:    workflow.Status(req.Status),
		Limit:     req.Limit,
		Offset:    req.Offset,
	})
	if err != nil {
		h.fail(c, err, "failed to list expenses")
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: toExpenseResponses(expenses)})
}

// OverrideRequest is the body for POST /api/admin/expenses/:id/override
type OverrideRequest struct {
	Action  string `json:"action" binding:"required"`
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

// OverrideExpense handles POST /api/admin/expenses/:id/override
func (h *AdminHandlers) OverrideExpense(c *gin.Context) {
	var req OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	id := identityFrom(c)
	expense, err := h.overrideService.Override(
		c.Request.Context(),
		id.CompanyID,
		c.Param("id"),
		id.UserID,
		service.OverrideAction(req.Action),
		workflow.Status(req.Status),
		req.Comment,
	)
	if err != nil {
		h.fail(c, err, "failed to apply override")
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: toExpenseResponse(expense)})
}

// ExportExpenses handles GET /api/admin/expenses/export
func (h *AdminHandlers) ExportExpenses(c *gin.Context) {
	id := identityFrom(c)
	data, err := h.reportService.ExportCompanyExpenses(
		c.Request.Context(), id.CompanyID, workflow.Status(c.Query("status")))
	if err != nil {
		h.fail(c, err, "failed to export expenses")
		return
	}

	filename := fmt.Sprintf("expenses-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
