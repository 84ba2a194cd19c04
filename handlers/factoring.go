package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stellar/go/keypair"
	"github.com/yourusername/invoice-factoring/factoring"
	"github.com/yourusername/invoice-factoring/ledger"
)

// FactoringHandler runs the composed tokenize and invest flows. The server
// holds the operator key and signs as the operator in both.
type FactoringHandler struct {
	svc      *factoring.Service
	operator ledger.Address
}

func NewFactoringHandler(svc *factoring.Service, operator *keypair.Full) *FactoringHandler {
	return &FactoringHandler{svc: svc, operator: ledger.Address(operator.Address())}
}

type TokenizeRequest struct {
	Marketplace   string         `json:"marketplace" binding:"required"`
	Issuer        string         `json:"issuer" binding:"required"`
	ListingID     string         `json:"listing_id" binding:"required"`
	InvoiceID     string         `json:"invoice_id" binding:"required"`
	Metadata      map[string]any `json:"metadata"`
	FaceValue     int64          `json:"face_value"`
	PricePerToken int64          `json:"price_per_token"`
	MinInvestment int64          `json:"min_investment"`
	DiscountRate  int64          `json:"discount_rate"`
}

func (h *FactoringHandler) Tokenize(c *gin.Context) {
	var req TokenizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	market, err := ledger.ParseAddress(req.Marketplace)
	if err != nil {
		respondError(c, err)
		return
	}
	issuer, err := parseAccount("issuer", req.Issuer)
	if err != nil {
		respondError(c, err)
		return
	}

	out, err := h.svc.Tokenize(c.Request.Context(), ledger.Allow(h.operator), factoring.TokenizeRequest{
		Operator:      h.operator,
		Issuer:        issuer,
		Marketplace:   market,
		ListingID:     req.ListingID,
		InvoiceID:     req.InvoiceID,
		Metadata:      req.Metadata,
		FaceValue:     req.FaceValue,
		PricePerToken: req.PricePerToken,
		MinInvestment: req.MinInvestment,
		DiscountRate:  req.DiscountRate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

type InvestRequest struct {
	Marketplace string `json:"marketplace" binding:"required"`
	ListingID   string `json:"listing_id" binding:"required"`
	Amount      int64  `json:"amount"`
}

// Invest buys tokens from the operator for the caller and escrows their cost.
func (h *FactoringHandler) Invest(c *gin.Context) {
	investor, ok := callerAddress(c)
	if !ok {
		return
	}
	var req InvestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	market, err := ledger.ParseAddress(req.Marketplace)
	if err != nil {
		respondError(c, err)
		return
	}

	receipt, err := h.svc.Invest(c.Request.Context(), ledger.Allow(investor, h.operator), factoring.InvestRequest{
		Marketplace: market,
		ListingID:   req.ListingID,
		Investor:    investor,
		Seller:      h.operator,
		Amount:      req.Amount,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}
