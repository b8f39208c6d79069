package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/expenseflow/backend/internal/application/service"
	"github.com/expenseflow/backend/internal/domain/entity"
	"github.com/expenseflow/backend/internal/domain/workflow"
)

// Handlers contains the HTTP request handlers for the submitter-facing API
type Handlers struct {
	expenseService service.ExpenseService
	engine         service.ApprovalEngine
	logger         Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(expenseService service.ExpenseService, engine service.ApprovalEngine, logger Logger) *Handlers {
	return &Handlers{
		expenseService: expenseService,
		engine:         engine,
		logger:         logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ExpenseResponse represents an expense in API responses
type ExpenseResponse struct {
	ID               string                  `json:"id"`
	CompanyID        string                  `json:"company_id"`
	SubmittedBy      string                  `json:"submitted_by"`
	AmountOriginal   float64                 `json:"amount_original"`
	CurrencyOriginal string                  `json:"currency_original"`
	AmountBase       float64                 `json:"amount_base"`
	BaseCurrency     string                  `json:"base_currency"`
	Category         string                  `json:"category,omitempty"`
	Description      string                  `json:"description,omitempty"`
	ExpenseDate      string                  `json:"expense_date"`
	ApprovalFlowName string                  `json:"approval_flow_name,omitempty"`
	CurrentStepIndex int                     `json:"current_step_index"`
	Status           string                  `json:"status"`
	History          []entity.DecisionRecord `json:"approval_history"`
	CreatedAt        string                  `json:"created_at"`
	UpdatedAt        string                  `json:"updated_at"`
}

func toExpenseResponse(e *entity.Expense) ExpenseResponse {
	return ExpenseResponse{
		ID:               e.ID,
		CompanyID:        e.CompanyID,
		SubmittedBy:      e.SubmittedBy,
		AmountOriginal:   e.AmountOriginal,
		CurrencyOriginal: e.CurrencyOriginal,
		AmountBase:       e.AmountBase,
		BaseCurrency:     e.BaseCurrency,
		Category:         e.Category,
		Description:      e.Description,
		ExpenseDate:      e.ExpenseDate.Format("2006-01-02"),
		ApprovalFlowName: e.ApprovalFlowName,
		CurrentStepIndex: e.CurrentStepIndex,
		Status:           e.Status.String(),
		History:          e.History(),
		CreatedAt:        e.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        e.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toExpenseResponses(expenses []*entity.Expense) []ExpenseResponse {
	out := make([]ExpenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseResponse(e))
	}
	return out
}

// errorStatus maps engine errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, workflow.ErrExpenseNotFound),
		errors.Is(err, workflow.ErrCompanyNotFound),
		errors.Is(err, workflow.ErrFlowNotFound),
		errors.Is(err, workflow.ErrRuleNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrUnauthorizedApprover):
		return http.StatusForbidden
	case errors.Is(err, workflow.ErrConflict),
		errors.Is(err, workflow.ErrDuplicateName):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrAlreadyProcessed),
		errors.Is(err, workflow.ErrNoFlowConfigured),
		errors.Is(err, workflow.ErrInvalidDecision),
		errors.Is(err, workflow.ErrInvalidStatus),
		errors.Is(err, workflow.ErrInvalidAction):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) fail(c *gin.Context, err error, msg string) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(msg, "error", err)
		c.JSON(status, Response{Success: false, Error: msg})
		return
	}
	c.JSON(status, Response{Success: false, Error: err.Error()})
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// CreateExpenseRequest is the body for POST /api/expenses
type CreateExpenseRequest struct {
	AmountOriginal   float64 `json:"amount_original" binding:"required"`
	CurrencyOriginal string  `json:"currency_original" binding:"required"`
	AmountBase       float64 `json:"amount_base" binding:"required"`
	BaseCurrency     string  `json:"base_currency" binding:"required"`
	Category         string  `json:"category"`
	Description      string  `json:"description"`
	ExpenseDate      string  `json:"expense_date" binding:"required"`
	ApprovalFlowName string  `json:"approval_flow_name"`
}

// CreateExpense handles POST /api/expenses
func (h *Handlers) CreateExpense(c *gin.Context) {
	var req CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}
	expenseDate, err := time.Parse("2006-01-02", req.ExpenseDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "expense_date must be YYYY-MM-DD"})
		return
	}

	id := identityFrom(c)
	expense, err := h.expenseService.CreateExpense(c.Request.Context(), service.CreateExpenseInput{
		CompanyID:        id.CompanyID,
		SubmittedBy:      id.UserID,
		AmountOriginal:   req.AmountOriginal,
		CurrencyOriginal: req.CurrencyOriginal,
		AmountBase:       req.AmountBase,
		BaseCurrency:     req.BaseCurrency,
		Category:         req.Category,
		Description:      req.Description,
		ExpenseDate:      expenseDate,
		ApprovalFlowName: req.ApprovalFlowName,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: toExpenseResponse(expense)})
}

// ListExpensesRequest holds query parameters for GET /api/expenses
type ListExpensesRequest struct {
	Scope  string `form:"scope"`
	Status string `form:"status"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// ListExpenses handles GET /api/expenses
func (h *Handlers) ListExpenses(c *gin.Context) {
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
		Scope:     req.Scope,
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

// GetExpense handles GET /api/expenses/:id
func (h *Handlers) GetExpense(c *gin.Context) {
	id := identityFrom(c)
	expense, err := h.expenseService.GetExpense(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to get expense")
		return
	}
	if expense.CompanyID != id.CompanyID {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: workflow.ErrExpenseNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: toExpenseResponse(expense)})
}

// DecisionRequest is the body for approve/reject endpoints
type DecisionRequest struct {
	Comments string `json:"comments"`
}

// ApproveExpense handles POST /api/expenses/:id/approve
func (h *Handlers) ApproveExpense(c *gin.Context) {
	h.submitDecision(c, workflow.DecisionApproved)
}

// RejectExpense handles POST /api/expenses/:id/reject
func (h *Handlers) RejectExpense(c *gin.Context) {
	h.submitDecision(c, workflow.DecisionRejected)
}

func (h *Handlers) submitDecision(c *gin.Context, decision workflow.Decision) {
	var req DecisionRequest
	// Comments are optional; an absent or empty body is fine.
	_ = c.ShouldBindJSON(&req)

	id := identityFrom(c)
	expense, action, err := h.engine.SubmitDecision(
		c.Request.Context(), c.Param("id"), id.UserID, decision, req.Comments)
	if err != nil {
		h.fail(c, err, "failed to submit decision")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"action":  string(action),
			"expense": toExpenseResponse(expense),
		},
	})
}

// ListPendingApprovals handles GET /api/approvals/pending
func (h *Handlers) ListPendingApprovals(c *gin.Context) {
	id := identityFrom(c)
	expenses, err := h.expenseService.ListPendingApprovals(c.Request.Context(), id.CompanyID, id.UserID)
	if err != nil {
		h.fail(c, err, "failed to list pending approvals")
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: toExpenseResponses(expenses)})
}

// GetCurrentApprovers handles GET /api/expenses/:id/approvers
func (h *Handlers) GetCurrentApprovers(c *gin.Context) {
	id := identityFrom(c)
	expense, err := h.expenseService.GetExpense(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to get expense")
		return
	}
	if expense.CompanyID != id.CompanyID {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: workflow.ErrExpenseNotFound.Error()})
		return
	}

	approvers, err := h.engine.GetCurrentApprovers(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to resolve approvers")
		return
	}
	if approvers == nil {
		approvers = []string{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"approvers": approvers}})
}
