package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/invoice-factoring/escrow"
	"github.com/yourusername/invoice-factoring/invoicetoken"
	"github.com/yourusername/invoice-factoring/ledger"
	"github.com/yourusername/invoice-factoring/marketplace"
	"go.uber.org/zap"
)

var deployableKinds = map[string]bool{
	escrow.Kind:       true,
	invoicetoken.Kind: true,
	marketplace.Kind:  true,
}

type ContractHandler struct {
	host *ledger.Host
	log  *zap.Logger
}

func NewContractHandler(host *ledger.Host, log *zap.Logger) *ContractHandler {
	return &ContractHandler{host: host, log: log}
}

type DeployRequest struct {
	Kind string `json:"kind" binding:"required"`
}

// Deploy creates a new uninitialized contract instance.
func (h *ContractHandler) Deploy(c *gin.Context) {
	var req DeployRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !deployableKinds[req.Kind] {
		respondError(c, fmt.Errorf("%w: unknown contract kind %q", ledger.ErrInvalidArgument, req.Kind))
		return
	}

	id, err := h.host.Deploy(c.Request.Context(), req.Kind)
	if err != nil {
		respondError(c, err)
		return
	}
	h.log.Info("contract deployed", zap.String("kind", req.Kind), zap.Stringer("contract", id))
	c.JSON(http.StatusCreated, gin.H{"id": id, "kind": req.Kind})
}

type EventResponse struct {
	ID        string          `json:"id"`
	Topic     string          `json:"topic"`
	Data      json.RawMessage `json:"data"`
	Sequence  uint64          `json:"sequence"`
	Timestamp time.Time       `json:"timestamp"`
}

// Events lists a contract's events in ledger order.
func (h *ContractHandler) Events(c *gin.Context) {
	id, ok := contractParam(c, "id")
	if !ok {
		return
	}

	var kind string
	err := h.host.View(c.Request.Context(), func(tx *ledger.Tx) error {
		var err error
		kind, err = tx.KindOf(id)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}

	events, err := h.host.Events(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]EventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, EventResponse{
			ID:        ev.ID,
			Topic:     ev.Topic,
			Data:      json.RawMessage(ev.Data),
			Sequence:  ev.Sequence,
			Timestamp: ev.Timestamp,
		})
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "kind": kind, "events": out})
}
