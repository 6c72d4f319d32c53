// Finance HTTP handlers.
//
//   - GET    /transactions              (?from&to&type)
//   - POST   /transactions              (manual entry)
//   - DELETE /transactions/{id}
//   - GET    /finances/summary          (?year)
//   - GET    /finances/statement.pdf    (?from&to)
package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/anidigital/harvest-hub/internal/domain"
	"github.com/anidigital/harvest-hub/internal/repo"
	"github.com/anidigital/harvest-hub/internal/services"
	"github.com/anidigital/harvest-hub/internal/utils"
)

// CreateTransactionRequest is a manual ledger entry.
type CreateTransactionRequest struct {
	Type        string `json:"type" binding:"required,oneof=income expense" example:"expense"`
	Category    string `json:"category" binding:"required,max=100" example:"Fertilizer"`
	Amount      string `json:"amount" binding:"required,decimal" example:"1250.00"`
	Description string `json:"description" binding:"max=500" example:"Urea, 2 sacks"`
	Date        string `json:"date" example:"2025-03-14"`
}

// ListTransactionsResponse lists ledger rows, newest first.
type ListTransactionsResponse struct {
	Transactions []domain.Transaction `json:"transactions"`
}

// ListTransactions godoc
// @ID          listTransactions
// @Summary     List ledger entries
// @Tags        Finances
// @Produce     json
// @Security    BearerAuth
// @Param       from  query  string  false  "From date (inclusive)"  example(2025-01-01)
// @Param       to    query  string  false  "To date (inclusive)"    example(2025-12-31)
// @Param       type  query  string  false  "income|expense"
// @Success     200  {object}  handlers.ListTransactionsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Router      /transactions [get]
func (h *Handlers) ListTransactions(c *gin.Context) {
	f := repo.TransactionFilter{
		From: strings.TrimSpace(c.Query("from")),
		To:   strings.TrimSpace(c.Query("to")),
		Type: strings.TrimSpace(c.Query("type")),
	}
	items, err := h.Ledger.List(c.Request.Context(), userID(c), f)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListTransactionsResponse{Transactions: items})
}

// CreateTransaction godoc
// @ID          createTransaction
// @Summary     Record a manual ledger entry
// @Description Amounts are rounded to centavos; date defaults to today.
// @Tags        Finances
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.CreateTransactionRequest  true  "Entry"
// @Success     201   {object}  domain.Transaction
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Router      /transactions [post]
func (h *Handlers) CreateTransaction(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "type, category and a numeric amount are required")
		return
	}
	in := services.TransactionInput{
		Type:        req.Type,
		Category:    req.Category,
		Description: req.Description,
		Date:        req.Date,
	}
	if d := optDecimal(&req.Amount); d != nil {
		in.Amount = *d
	}
	t, err := h.Ledger.Create(c.Request.Context(), userID(c), in)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, t)
}

// DeleteTransaction godoc
// @ID          deleteTransaction
// @Summary     Delete a ledger entry
// @Tags        Finances
// @Security    BearerAuth
// @Param       id   path  string  true  "Transaction ID (UUID)"  format(uuid)
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /transactions/{id} [delete]
func (h *Handlers) DeleteTransaction(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "transaction id must be a UUID")
		return
	}
	if err := h.Ledger.Delete(c.Request.Context(), userID(c), id); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// FinanceSummary godoc
// @ID          financeSummary
// @Summary     Yearly totals, monthly series and category breakdown
// @Tags        Finances
// @Produce     json
// @Security    BearerAuth
// @Param       year  query  int  false  "Calendar year (defaults to the current year)"  example(2025)
// @Success     200  {object}  services.FinanceSummary
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Router      /finances/summary [get]
func (h *Handlers) FinanceSummary(c *gin.Context) {
	year := utils.AtoiDefault(c.Query("year"), time.Now().UTC().Year())
	if year < 1970 || year > 9999 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "year out of range")
		return
	}
	s, err := h.Ledger.Summary(c.Request.Context(), userID(c), year)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, s)
}

// Statement godoc
// @ID          financeStatement
// @Summary     PDF statement
// @Tags        Finances
// @Produce     application/pdf
// @Security    BearerAuth
// @Param       from  query  string  false  "From date (inclusive)"
// @Param       to    query  string  false  "To date (inclusive)"
// @Success     200  {file}    file
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Router      /finances/statement.pdf [get]
func (h *Handlers) Statement(c *gin.Context) {
	from, to := strings.TrimSpace(c.Query("from")), strings.TrimSpace(c.Query("to"))
	pdf, err := h.Ledger.Statement(c.Request.Context(), userID(c), from, to)
	if err != nil {
		failErr(c, err)
		return
	}
	name := "statement.pdf"
	if from != "" || to != "" {
		name = fmt.Sprintf("statement_%s_%s.pdf", orAll(from), orAll(to))
	}
	attachment(c, name, "application/pdf", pdf)
}

func orAll(s string) string {
	if s == "" {
		return "all"
	}
	return s
}
