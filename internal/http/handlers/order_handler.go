// Order HTTP handlers.
//
// This file exposes the order-in-chat workflow:
//   - POST /orders                        (purchase; idempotent)
//   - GET  /orders/{id}                   (participants only)
//   - POST /orders/{id}/pending           (seller: requested → pending_payment)
//   - POST /orders/{id}/paid              (seller: → paid; idempotent)
//   - GET  /orders/{id}/payment-proofs    (list proofs)
//   - POST /orders/{id}/payment-proofs    (buyer uploads a proof, multipart)
//   - POST /payment-proofs/{id}/verify    (seller approves or rejects)
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous result is
// recorded for (user, route, key), the handler answers with the current
// state of the recorded order and sets `Idempotency-Replayed: true` instead
// of repeating the side effects.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/anidigital/harvest-hub/internal/domain"
	"github.com/anidigital/harvest-hub/internal/http/middleware"
	"github.com/anidigital/harvest-hub/internal/services"
)

//
// DTOs
//

// PurchaseRequest starts an order from a product listing.
type PurchaseRequest struct {
	ProductID string          `json:"product_id" binding:"required" example:"9c3a1f0e-7d2b-4b7e-8f4a-2a6b1c0d9e88"`
	Quantity  decimal.Decimal `json:"quantity" swaggertype:"string" example:"2.5"`
}

// VerifyProofRequest decides a payment proof.
type VerifyProofRequest struct {
	Status string `json:"status" binding:"required,oneof=approved rejected" example:"approved"`
	Reason string `json:"reason" binding:"max=500" example:"amount does not match"`
}

// ListProofsResponse lists an order's payment proofs.
type ListProofsResponse struct {
	Proofs []domain.PaymentProof `json:"proofs"`
}

func orderID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "order id must be a UUID")
		return "", false
	}
	return id, true
}

// replayedOrder loads the order recorded under the request's idempotency key. It
// reports false when there is nothing to replay and the request must run.
func (h *Handlers) replayedOrder(c *gin.Context) (*domain.OrderView, bool) {
	key, found := middleware.GetIdempotencyKey(c)
	if !found || h.Idempotency == nil {
		return nil, false
	}
	ctx := c.Request.Context()
	uid := userID(c)
	rid, found, err := h.Idempotency.Lookup(ctx, uid, middleware.IdempotencyScope(c), key)
	if err != nil || !found {
		return nil, false
	}
	prev, err := h.Orders.Get(ctx, uid, rid)
	if err != nil {
		return nil, false
	}
	return prev, true
}

// rememberOrder records orderID under the request's key (best effort).
func (h *Handlers) rememberOrder(c *gin.Context, id string, status int) {
	key, found := middleware.GetIdempotencyKey(c)
	if !found || h.Idempotency == nil {
		return
	}
	if err := h.Idempotency.Save(c.Request.Context(), userID(c), middleware.IdempotencyScope(c), key, id, status); err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Str("order_id", id).Msg("idempotency record failed")
	}
}

// Purchase godoc
// @ID          purchase
// @Summary     Buy a product
// @Description Validates stock and ownership before any write, then opens (or reuses) the buyer/seller conversation, creates the order in status requested, posts an order message and notifies the seller.
// @Description Supports idempotency via the Idempotency-Key header (same key → same order).
// @Tags        Orders
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       Idempotency-Key  header  string  false  "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.PurchaseRequest  true  "Product and quantity"
// @Success     201  {object}  services.PurchaseResult
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request or self purchase"
// @Failure     404  {object}  handlers.ErrorResponse  "Product not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Insufficient stock"
// @Router      /orders [post]
func (h *Handlers) Purchase(c *gin.Context) {
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "product_id and a numeric quantity are required")
		return
	}

	if prev, replay := h.replayedOrder(c); replay {
		replayed(c, http.StatusCreated, services.PurchaseResult{Order: *prev, ConversationID: prev.ConversationID})
		return
	}

	res, err := h.Orders.Purchase(c.Request.Context(), userID(c), strings.TrimSpace(req.ProductID), req.Quantity)
	if err != nil {
		failErr(c, err)
		return
	}
	h.rememberOrder(c, res.Order.ID, http.StatusCreated)
	ok(c, http.StatusCreated, res)
}

// GetOrder godoc
// @ID          getOrder
// @Summary     Get an order
// @Description The viewer's available actions are included; only the seller gets any.
// @Tags        Orders
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Order ID (UUID)"  format(uuid)
// @Success     200  {object}  domain.OrderView
// @Failure     403  {object}  handlers.ErrorResponse  "Not a participant"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /orders/{id} [get]
func (h *Handlers) GetOrder(c *gin.Context) {
	id, valid := orderID(c)
	if !valid {
		return
	}
	o, err := h.Orders.Get(c.Request.Context(), userID(c), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, o)
}

// MarkPending godoc
// @ID          markOrderPending
// @Summary     Mark an order as awaiting payment
// @Tags        Orders
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Order ID (UUID)"  format(uuid)
// @Success     200  {object}  domain.OrderView
// @Failure     403  {object}  handlers.ErrorResponse  "Not the seller"
// @Failure     409  {object}  handlers.ErrorResponse  "Invalid transition"
// @Router      /orders/{id}/pending [post]
func (h *Handlers) MarkPending(c *gin.Context) {
	id, valid := orderID(c)
	if !valid {
		return
	}
	o, err := h.Orders.MarkPending(c.Request.Context(), userID(c), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, o)
}

// MarkPaid godoc
// @ID          markOrderPaid
// @Summary     Mark an order as paid
// @Description Atomically records the buyer expense and seller income, decrements stock, notifies both parties and posts an order message. A second call answers 409 order_already_paid unless it replays the same Idempotency-Key.
// @Tags        Orders
// @Produce     json
// @Security    BearerAuth
// @Param       Idempotency-Key  header  string  false  "Idempotency key for safe retries"
// @Param       id               path    string  true   "Order ID (UUID)"  format(uuid)
// @Success     200  {object}  domain.OrderView
// @Failure     403  {object}  handlers.ErrorResponse  "Not the seller"
// @Failure     409  {object}  handlers.ErrorResponse  "Already paid"
// @Router      /orders/{id}/paid [post]
func (h *Handlers) MarkPaid(c *gin.Context) {
	id, valid := orderID(c)
	if !valid {
		return
	}
	if prev, replay := h.replayedOrder(c); replay {
		replayed(c, http.StatusOK, prev)
		return
	}
	o, err := h.Orders.MarkPaid(c.Request.Context(), userID(c), id)
	if err != nil {
		failErr(c, err)
		return
	}
	h.rememberOrder(c, o.ID, http.StatusOK)
	ok(c, http.StatusOK, o)
}

// ListPaymentProofs godoc
// @ID          listPaymentProofs
// @Summary     List an order's payment proofs
// @Tags        Orders
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Order ID (UUID)"  format(uuid)
// @Success     200  {object}  handlers.ListProofsResponse
// @Failure     403  {object}  handlers.ErrorResponse  "Not a participant"
// @Router      /orders/{id}/payment-proofs [get]
func (h *Handlers) ListPaymentProofs(c *gin.Context) {
	id, valid := orderID(c)
	if !valid {
		return
	}
	proofs, err := h.Payments.ListProofs(c.Request.Context(), userID(c), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListProofsResponse{Proofs: proofs})
}

// SubmitPaymentProof godoc
// @ID          submitPaymentProof
// @Summary     Upload a manual payment screenshot
// @Tags        Orders
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string  true  "Order ID (UUID)"  format(uuid)
// @Param       file  formData  file    true  "Screenshot"
// @Success     201  {object}  domain.PaymentProof
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request or file too large"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the buyer"
// @Failure     415  {object}  handlers.ErrorResponse  "Not an image"
// @Router      /orders/{id}/payment-proofs [post]
func (h *Handlers) SubmitPaymentProof(c *gin.Context) {
	id, valid := orderID(c)
	if !valid {
		return
	}
	data, err := readUpload(c, "file", true)
	if err != nil {
		failErr(c, err)
		return
	}
	p, err := h.Payments.SubmitProof(c.Request.Context(), userID(c), id, data)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, p)
}

// VerifyPaymentProof godoc
// @ID          verifyPaymentProof
// @Summary     Approve or reject a payment proof
// @Description Approval marks the order paid (if it is not already); rejection notifies the buyer with the reason.
// @Tags        Orders
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string  true  "Payment proof ID (UUID)"  format(uuid)
// @Param       body  body      handlers.VerifyProofRequest  true  "Decision"
// @Success     200   {object}  domain.PaymentProof
// @Failure     403   {object}  handlers.ErrorResponse  "Not the seller"
// @Failure     409   {object}  handlers.ErrorResponse  "Already decided"
// @Router      /payment-proofs/{id}/verify [post]
func (h *Handlers) VerifyPaymentProof(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "proof id must be a UUID")
		return
	}
	var req VerifyProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status must be approved or rejected")
		return
	}
	p, err := h.Payments.Verify(c.Request.Context(), userID(c), id, domain.ProofStatus(req.Status), req.Reason)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}
