// Package factoring composes the invoice token, escrow and marketplace
// contracts into single atomic calls: tokenizing an invoice and investing in
// a listing either happen completely or not at all.
package factoring

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/yourusername/invoice-factoring/escrow"
	"github.com/yourusername/invoice-factoring/invoicetoken"
	"github.com/yourusername/invoice-factoring/ledger"
	"github.com/yourusername/invoice-factoring/marketplace"
	"go.uber.org/zap"
)

type Service struct {
	host *ledger.Host
	log  *zap.Logger
}

func NewService(host *ledger.Host, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{host: host, log: log}
}

type TokenizeRequest struct {
	Operator      ledger.Address
	Issuer        ledger.Address
	Marketplace   ledger.Address
	ListingID     string
	InvoiceID     string
	Metadata      map[string]any
	FaceValue     int64
	PricePerToken int64
	MinInvestment int64
	DiscountRate  int64
}

type Tokenization struct {
	ListingID    string         `json:"listing_id"`
	InvoiceToken ledger.Address `json:"invoice_token"`
	Escrow       ledger.Address `json:"escrow"`
	MetadataHash []byte         `json:"metadata_hash"`
	EscrowTarget int64          `json:"escrow_target"`
	Sequence     uint64         `json:"sequence"`
}

// MetadataHash is the sha256 of the metadata's JSON encoding. Map keys are
// encoded in sorted order, so equal metadata always hashes the same.
func MetadataHash(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata: %v", ledger.ErrInvalidArgument, err)
	}
	sum := sha256.Sum256(raw)
	return sum[:], nil
}

// Tokenize issues a token for the full face value of an invoice to the
// operator, opens an escrow that pays the issuer once the tokens are sold,
// and lists the tokens on the marketplace. The operator must be the
// marketplace admin.
func (s *Service) Tokenize(ctx context.Context, auth ledger.Authorizer, req TokenizeRequest) (Tokenization, error) {
	hash, err := MetadataHash(req.Metadata)
	if err != nil {
		return Tokenization{}, err
	}
	if req.FaceValue <= 0 {
		return Tokenization{}, fmt.Errorf("%w: face value must be positive", ledger.ErrInvalidArgument)
	}
	target, err := Cost(req.FaceValue, req.PricePerToken)
	if err != nil {
		return Tokenization{}, err
	}

	out := Tokenization{ListingID: req.ListingID, MetadataHash: hash, EscrowTarget: target}
	err = s.host.Invoke(ctx, auth, func(tx *ledger.Tx) error {
		market, err := marketplace.Bind(tx, req.Marketplace)
		if err != nil {
			return err
		}

		if out.InvoiceToken, err = tx.Deploy(invoicetoken.Kind); err != nil {
			return err
		}
		token, err := invoicetoken.Bind(tx, out.InvoiceToken)
		if err != nil {
			return err
		}
		if err := token.Initialize(req.Operator, req.InvoiceID, hash, req.FaceValue); err != nil {
			return err
		}

		if out.Escrow, err = tx.Deploy(escrow.Kind); err != nil {
			return err
		}
		esc, err := escrow.Bind(tx, out.Escrow)
		if err != nil {
			return err
		}
		if err := esc.Initialize(req.Operator, out.InvoiceToken, req.Issuer, target, req.DiscountRate); err != nil {
			return err
		}

		out.Sequence = tx.Sequence()
		return market.ListToken(req.Operator, req.ListingID, out.InvoiceToken, out.Escrow, req.PricePerToken, req.MinInvestment, req.FaceValue)
	})
	if err != nil {
		return Tokenization{}, err
	}
	s.log.Info("invoice tokenized",
		zap.String("invoice_id", req.InvoiceID),
		zap.String("listing_id", req.ListingID),
		zap.Stringer("token", out.InvoiceToken),
		zap.Stringer("escrow", out.Escrow),
		zap.Int64("target", target))
	return out, nil
}

type InvestRequest struct {
	Marketplace ledger.Address
	ListingID   string
	Investor    ledger.Address
	Seller      ledger.Address
	Amount      int64
}

type Receipt struct {
	ListingID    string         `json:"listing_id"`
	InvoiceToken ledger.Address `json:"invoice_token"`
	Escrow       ledger.Address `json:"escrow"`
	Investor     ledger.Address `json:"investor"`
	Amount       int64          `json:"amount"`
	Cost         int64          `json:"cost"`
	TotalSold    int64          `json:"total_sold"`
	EscrowStatus escrow.Status  `json:"escrow_status"`
	Sequence     uint64         `json:"sequence"`
}

// Invest records a purchase on a listing, moves the tokens from the seller
// to the investor and deposits their cost into the listing's escrow. The
// call needs credentials for both the investor and the seller.
func (s *Service) Invest(ctx context.Context, auth ledger.Authorizer, req InvestRequest) (Receipt, error) {
	var r Receipt
	err := s.host.Invoke(ctx, auth, func(tx *ledger.Tx) error {
		market, err := marketplace.Bind(tx, req.Marketplace)
		if err != nil {
			return err
		}
		if err := market.Purchase(req.Investor, req.ListingID, req.Amount); err != nil {
			return err
		}
		listing, err := market.Listing(req.ListingID)
		if err != nil {
			return err
		}
		cost, err := Cost(req.Amount, listing.PricePerToken)
		if err != nil {
			return err
		}

		token, err := invoicetoken.Bind(tx, listing.InvoiceToken)
		if err != nil {
			return err
		}
		if err := token.Transfer(req.Seller, req.Investor, req.Amount); err != nil {
			return err
		}

		esc, err := escrow.Bind(tx, listing.Escrow)
		if err != nil {
			return err
		}
		if err := esc.Deposit(req.Investor, cost); err != nil {
			return err
		}
		status, err := esc.Status()
		if err != nil {
			return err
		}

		r = Receipt{
			ListingID:    req.ListingID,
			InvoiceToken: listing.InvoiceToken,
			Escrow:       listing.Escrow,
			Investor:     req.Investor,
			Amount:       req.Amount,
			Cost:         cost,
			TotalSold:    listing.TotalSold,
			EscrowStatus: status,
			Sequence:     tx.Sequence(),
		}
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}
	s.log.Info("investment settled",
		zap.String("listing_id", r.ListingID),
		zap.Stringer("investor", r.Investor),
		zap.Int64("amount", r.Amount),
		zap.Int64("cost", r.Cost),
		zap.String("escrow_status", string(r.EscrowStatus)))
	return r, nil
}
