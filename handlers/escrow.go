package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/invoice-factoring/escrow"
	"github.com/yourusername/invoice-factoring/factoring"
	"github.com/yourusername/invoice-factoring/ledger"
	"github.com/yourusername/invoice-factoring/models"
)

type EscrowHandler struct {
	host    *ledger.Host
	payouts *PayoutService
}

func NewEscrowHandler(host *ledger.Host, payouts *PayoutService) *EscrowHandler {
	return &EscrowHandler{host: host, payouts: payouts}
}

type InitializeEscrowRequest struct {
	InvoiceToken  string `json:"invoice_token" binding:"required"`
	FundRecipient string `json:"fund_recipient" binding:"required"`
	TotalAmount   int64  `json:"total_amount"`
	DiscountRate  int64  `json:"discount_rate"` // basis points
}

// Initialize configures an escrow with the caller as its admin.
func (h *EscrowHandler) Initialize(c *gin.Context) {
	id, ok := contractParam(c, "id")
	if !ok {
		return
	}
	admin, ok := callerAddress(c)
	if !ok {
		return
	}
	var req InitializeEscrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token, err := parseAddress("invoice_token", req.InvoiceToken)
	if err != nil {
		respondError(c, err)
		return
	}
	recipient, err := parseAccount("fund_recipient", req.FundRecipient)
	if err != nil {
		respondError(c, err)
		return
	}

	client := escrow.NewClient(h.host, id)
	if err := client.Initialize(c.Request.Context(), ledger.Allow(admin), admin, token, recipient, req.TotalAmount, req.DiscountRate); err != nil {
		respondError(c, err)
		return
	}
	h.respondState(c, http.StatusCreated, client)
}

type AmountRequest struct {
	Amount int64 `json:"amount"`
}

// Deposit adds the caller's funds to the escrow.
func (h *EscrowHandler) Deposit(c *gin.Context) {
	id, ok := contractParam(c, "id")
	if !ok {
		return
	}
	investor, ok := callerAddress(c)
	if !ok {
		return
	}
	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	client := escrow.NewClient(h.host, id)
	if err := client.Deposit(c.Request.Context(), ledger.Allow(investor), investor, req.Amount); err != nil {
		respondError(c, err)
		return
	}
	h.respondState(c, http.StatusOK, client)
}

// Release marks a funded escrow released with the caller as verifier and
// records the payout to the fund recipient.
func (h *EscrowHandler) Release(c *gin.Context) {
	id, ok := contractParam(c, "id")
	if !ok {
		return
	}
	verifier, ok := callerAddress(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	client := escrow.NewClient(h.host, id)
	if err := client.ReleasePayment(ctx, ledger.Allow(verifier), verifier); err != nil {
		respondError(c, err)
		return
	}
	payout, err := h.settle(ctx, client)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusOK, gin.H{"id": id, "status": escrow.StatusReleased, "payout_error": "Failed to record payout"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": escrow.StatusReleased, "payout": payout})
}

// Payout settles a released escrow whose payout is missing or failed. A
// payout that was already built or submitted is returned unchanged.
func (h *EscrowHandler) Payout(c *gin.Context) {
	id, ok := contractParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	client := escrow.NewClient(h.host, id)
	status, err := client.Status(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	if status != escrow.StatusReleased {
		respondError(c, fmt.Errorf("%w: escrow is %s, not released", ledger.ErrInvalidState, status))
		return
	}

	payout, err := h.settle(ctx, client)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payout)
}

func (h *EscrowHandler) settle(ctx context.Context, client *escrow.Client) (*models.Payout, error) {
	cfg, err := client.Config(ctx)
	if err != nil {
		return nil, err
	}
	total, err := client.TotalDeposited(ctx)
	if err != nil {
		return nil, err
	}
	return h.payouts.Settle(client.Address(), cfg.FundRecipient, total)
}

// Default moves the escrow to Default. Only the escrow admin may do this.
func (h *EscrowHandler) Default(c *gin.Context) {
	id, ok := contractParam(c, "id")
	if !ok {
		return
	}
	admin, ok := callerAddress(c)
	if !ok {
		return
	}

	client := escrow.NewClient(h.host, id)
	if err := client.HandleDefault(c.Request.Context(), ledger.Allow(admin), admin); err != nil {
		respondError(c, err)
		return
	}
	h.respondState(c, http.StatusOK, client)
}

func (h *EscrowHandler) Get(c *gin.Context) {
	id, ok := contractParam(c, "id")
	if !ok {
		return
	}
	h.respondState(c, http.StatusOK, escrow.NewClient(h.host, id))
}

func (h *EscrowHandler) GetDeposit(c *gin.Context) {
	id, ok := contractParam(c, "id")
	if !ok {
		return
	}
	investor, err := ledger.ParseAddress(c.Param("investor"))
	if err != nil {
		respondError(c, err)
		return
	}

	amount, err := escrow.NewClient(h.host, id).DepositOf(c.Request.Context(), investor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "investor": investor, "amount": amount})
}

func (h *EscrowHandler) GetPayout(c *gin.Context) {
	id, ok := contractParam(c, "id")
	if !ok {
		return
	}
	payout, err := h.payouts.Find(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payout)
}

type EscrowResponse struct {
	ID              ledger.Address `json:"id"`
	Status          escrow.Status  `json:"status"`
	TotalDeposited  int64          `json:"total_deposited"`
	IsFullyFunded   bool           `json:"is_fully_funded"`
	DiscountPercent string         `json:"discount_percent"`
	escrow.Config
}

func (h *EscrowHandler) respondState(c *gin.Context, status int, client *escrow.Client) {
	ctx := c.Request.Context()
	resp := EscrowResponse{ID: client.Address()}
	var err error
	if resp.Config, err = client.Config(ctx); err != nil {
		respondError(c, err)
		return
	}
	if resp.Status, err = client.Status(ctx); err != nil {
		respondError(c, err)
		return
	}
	if resp.TotalDeposited, err = client.TotalDeposited(ctx); err != nil {
		respondError(c, err)
		return
	}
	if resp.IsFullyFunded, err = client.IsFullyFunded(ctx); err != nil {
		respondError(c, err)
		return
	}
	resp.DiscountPercent = factoring.DiscountPercent(resp.DiscountRate)
	c.JSON(status, resp)
}
