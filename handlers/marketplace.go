package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/invoice-factoring/ledger"
	"github.com/yourusername/invoice-factoring/marketplace"
)

type MarketplaceHandler struct {
	host *ledger.Host
}

func NewMarketplaceHandler(host *ledger.Host) *MarketplaceHandler {
	return &MarketplaceHandler{host: host}
}

// Initialize makes the caller the marketplace admin.
func (h *MarketplaceHandler) Initialize(c *gin.Context) {
	id, ok := contractParam(c, "id")
	if !ok {
		return
	}
	admin, ok := callerAddress(c)
	if !ok {
		return
	}
	if err := marketplace.NewClient(h.host, id).Initialize(c.Request.Context(), ledger.Allow(admin), admin); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id, "admin": admin})
}

type ListTokenRequest struct {
	ListingID      string `json:"listing_id" binding:"required"`
	InvoiceToken   string `json:"invoice_token" binding:"required"`
	Escrow         string `json:"escrow" binding:"required"`
	PricePerToken  int64  `json:"price_per_token"`
	MinInvestment  int64  `json:"min_investment"`
	TotalAvailable int64  `json:"total_available"`
}

func (h *MarketplaceHandler) ListToken(c *gin.Context) {
	id, ok := contractParam(c, "id")
	if !ok {
		return
	}
	admin, ok := callerAddress(c)
	if !ok {
		return
	}
	var req ListTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token, err := parseAddress("invoice_token", req.InvoiceToken)
	if err != nil {
		respondError(c, err)
		return
	}
	esc, err := parseAddress("escrow", req.Escrow)
	if err != nil {
		respondError(c, err)
		return
	}

	client := marketplace.NewClient(h.host, id)
	ctx := c.Request.Context()
	if err := client.ListToken(ctx, ledger.Allow(admin), admin, req.ListingID, token, esc, req.PricePerToken, req.MinInvestment, req.TotalAvailable); err != nil {
		respondError(c, err)
		return
	}
	h.respondListing(c, http.StatusCreated, client, req.ListingID)
}

// Purchase records a purchase by the caller. It moves no tokens or funds;
// use the factoring invest endpoint to settle a purchase.
func (h *MarketplaceHandler) Purchase(c *gin.Context) {
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

	client := marketplace.NewClient(h.host, id)
	listingID := c.Param("listing")
	if err := client.Purchase(c.Request.Context(), ledger.Allow(investor), investor, listingID, req.Amount); err != nil {
		respondError(c, err)
		return
	}
	h.respondListing(c, http.StatusOK, client, listingID)
}

func (h *MarketplaceHandler) RemoveListing(c *gin.Context) {
	id, ok := contractParam(c, "id")
	if !ok {
		return
	}
	admin, ok := callerAddress(c)
	if !ok {
		return
	}

	client := marketplace.NewClient(h.host, id)
	listingID := c.Param("listing")
	if err := client.RemoveListing(c.Request.Context(), ledger.Allow(admin), admin, listingID); err != nil {
		respondError(c, err)
		return
	}
	h.respondListing(c, http.StatusOK, client, listingID)
}

func (h *MarketplaceHandler) GetListing(c *gin.Context) {
	id, ok := contractParam(c, "id")
	if !ok {
		return
	}
	h.respondListing(c, http.StatusOK, marketplace.NewClient(h.host, id), c.Param("listing"))
}

// ActiveListings returns the active listings in the order they were listed.
func (h *MarketplaceHandler) ActiveListings(c *gin.Context) {
	id, ok := contractParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	client := marketplace.NewClient(h.host, id)
	ids, err := client.ActiveListings(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	listings := make([]marketplace.Listing, 0, len(ids))
	for _, listingID := range ids {
		l, err := client.Listing(ctx, listingID)
		if err != nil {
			respondError(c, err)
			return
		}
		listings = append(listings, l)
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "listings": listings})
}

func (h *MarketplaceHandler) respondListing(c *gin.Context, status int, client *marketplace.Client, listingID string) {
	l, err := client.Listing(c.Request.Context(), listingID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, l)
}
