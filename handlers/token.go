package handlers

import (
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/invoice-factoring/invoicetoken"
	"github.com/yourusername/invoice-factoring/ledger"
)

type TokenHandler struct {
	host *ledger.Host
}

func NewTokenHandler(host *ledger.Host) *TokenHandler {
	return &TokenHandler{host: host}
}

type InitializeTokenRequest struct {
	InvoiceID    string `json:"invoice_id" binding:"required"`
	MetadataHash string `json:"metadata_hash"` // hex
	TotalSupply  int64  `json:"total_supply"`
}

// Initialize issues the whole supply to the caller, who becomes the admin.
func (h *TokenHandler) Initialize(c *gin.Context) {
	id, ok := contractParam(c, "id")
	if !ok {
		return
	}
	admin, ok := callerAddress(c)
	if !ok {
		return
	}
	var req InitializeTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	hash, err := hex.DecodeString(req.MetadataHash)
	if err != nil {
		respondError(c, fmt.Errorf("%w: metadata_hash must be hex", ledger.ErrInvalidArgument))
		return
	}

	client := invoicetoken.NewClient(h.host, id)
	if err := client.Initialize(c.Request.Context(), ledger.Allow(admin), admin, req.InvoiceID, hash, req.TotalSupply); err != nil {
		respondError(c, err)
		return
	}
	h.respondState(c, http.StatusCreated, client)
}

type TransferRequest struct {
	To     string `json:"to" binding:"required"`
	Amount int64  `json:"amount"`
}

// Transfer moves tokens from the caller to another holder.
func (h *TokenHandler) Transfer(c *gin.Context) {
	id, ok := contractParam(c, "id")
	if !ok {
		return
	}
	from, ok := callerAddress(c)
	if !ok {
		return
	}
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	to, err := ledger.ParseAddress(req.To)
	if err != nil {
		respondError(c, err)
		return
	}

	client := invoicetoken.NewClient(h.host, id)
	if err := client.Transfer(c.Request.Context(), ledger.Allow(from), from, to, req.Amount); err != nil {
		respondError(c, err)
		return
	}
	h.respondBalance(c, client, from)
}

type MintRequest struct {
	To     string `json:"to" binding:"required"`
	Amount int64  `json:"amount"`
}

// Mint creates tokens. The caller must be the token admin.
func (h *TokenHandler) Mint(c *gin.Context) {
	id, ok := contractParam(c, "id")
	if !ok {
		return
	}
	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	var req MintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	to, err := ledger.ParseAddress(req.To)
	if err != nil {
		respondError(c, err)
		return
	}

	client := invoicetoken.NewClient(h.host, id)
	if err := client.Mint(c.Request.Context(), ledger.Allow(caller), to, req.Amount); err != nil {
		respondError(c, err)
		return
	}
	h.respondBalance(c, client, to)
}

// Burn destroys tokens held by the caller.
func (h *TokenHandler) Burn(c *gin.Context) {
	id, ok := contractParam(c, "id")
	if !ok {
		return
	}
	from, ok := callerAddress(c)
	if !ok {
		return
	}
	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	client := invoicetoken.NewClient(h.host, id)
	if err := client.Burn(c.Request.Context(), ledger.Allow(from), from, req.Amount); err != nil {
		respondError(c, err)
		return
	}
	h.respondBalance(c, client, from)
}

func (h *TokenHandler) Get(c *gin.Context) {
	id, ok := contractParam(c, "id")
	if !ok {
		return
	}
	h.respondState(c, http.StatusOK, invoicetoken.NewClient(h.host, id))
}

func (h *TokenHandler) Balance(c *gin.Context) {
	id, ok := contractParam(c, "id")
	if !ok {
		return
	}
	owner, err := ledger.ParseAddress(c.Param("owner"))
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondBalance(c, invoicetoken.NewClient(h.host, id), owner)
}

type TokenResponse struct {
	ID           ledger.Address `json:"id"`
	Admin        ledger.Address `json:"admin"`
	InvoiceID    string         `json:"invoice_id"`
	MetadataHash string         `json:"metadata_hash"`
	TotalSupply  int64          `json:"total_supply"`
}

func (h *TokenHandler) respondState(c *gin.Context, status int, client *invoicetoken.Client) {
	ctx := c.Request.Context()
	resp := TokenResponse{ID: client.Address()}
	var err error
	if resp.Admin, err = client.Admin(ctx); err != nil {
		respondError(c, err)
		return
	}
	if resp.InvoiceID, err = client.InvoiceID(ctx); err != nil {
		respondError(c, err)
		return
	}
	hash, err := client.MetadataHash(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	resp.MetadataHash = hex.EncodeToString(hash)
	if resp.TotalSupply, err = client.TotalSupply(ctx); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, resp)
}

func (h *TokenHandler) respondBalance(c *gin.Context, client *invoicetoken.Client, owner ledger.Address) {
	ctx := c.Request.Context()
	balance, err := client.Balance(ctx, owner)
	if err != nil {
		respondError(c, err)
		return
	}
	supply, err := client.TotalSupply(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": client.Address(), "owner": owner, "balance": balance, "total_supply": supply})
}
