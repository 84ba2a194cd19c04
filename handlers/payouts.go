package handlers

import (
	"errors"
	"fmt"

	"github.com/stellar/go/amount"
	"github.com/stellar/go/keypair"
	"github.com/yourusername/invoice-factoring/config"
	"github.com/yourusername/invoice-factoring/ledger"
	"github.com/yourusername/invoice-factoring/models"
	"github.com/yourusername/invoice-factoring/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PayoutService settles released escrows on Stellar: the operator pays the
// escrowed total to the fund recipient.
type PayoutService struct {
	db            *gorm.DB
	config        *config.Config
	stellarClient utils.StellarClientInterface
	log           *zap.Logger
}

func NewPayoutService(db *gorm.DB, cfg *config.Config, stellarClient utils.StellarClientInterface, log *zap.Logger) *PayoutService {
	return &PayoutService{db: db, config: cfg, stellarClient: stellarClient, log: log}
}

// Settle records the payout for a released escrow, building and signing the
// payment envelope. The envelope is submitted only when PAYOUT_SUBMIT is on.
// A built or submitted payout is returned as is; a failed one is rebuilt and
// resubmitted in place.
func (p *PayoutService) Settle(escrowID, recipient ledger.Address, total int64) (*models.Payout, error) {
	var payout models.Payout
	err := p.db.Where("escrow_id = ?", escrowID.String()).First(&payout).Error
	switch {
	case err == nil && payout.Status != models.PayoutStatusFailed:
		return &payout, nil
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to load payout: %w", err)
	}
	retry := err == nil

	operator, err := keypair.ParseFull(p.config.OperatorSecret)
	if err != nil {
		return nil, fmt.Errorf("invalid operator secret: %w", err)
	}

	payout.EscrowID = escrowID.String()
	payout.SourceAccount = operator.Address()
	payout.RecipientAccount = recipient.String()
	payout.Amount = amount.StringFromInt64(total)
	payout.AssetCode = p.config.PayoutAssetCode
	payout.AssetIssuer = p.config.PayoutAssetIssuer
	payout.Status = models.PayoutStatusBuilt
	payout.Envelope = ""
	payout.TxHash = ""
	payout.Error = ""
	if p.config.NativePayouts() {
		payout.AssetCode = "XLM"
		payout.AssetIssuer = ""
	}

	if envelope, err := p.buildEnvelope(operator, &payout); err != nil {
		payout.Status = models.PayoutStatusFailed
		payout.Error = err.Error()
	} else {
		payout.Envelope = envelope
	}

	if payout.Status == models.PayoutStatusBuilt && p.config.PayoutSubmit {
		hash, err := p.stellarClient.SubmitXDR(payout.Envelope)
		if err != nil {
			payout.Status = models.PayoutStatusFailed
			payout.Error = err.Error()
		} else {
			payout.Status = models.PayoutStatusSubmitted
			payout.TxHash = hash
		}
	}

	if err := p.db.Save(&payout).Error; err != nil {
		return nil, fmt.Errorf("failed to record payout: %w", err)
	}

	fields := []zap.Field{
		zap.String("escrow", payout.EscrowID),
		zap.String("recipient", payout.RecipientAccount),
		zap.String("amount", payout.Amount),
		zap.String("status", payout.Status),
		zap.Bool("retry", retry),
	}
	if payout.Status == models.PayoutStatusFailed {
		p.log.Error("payout failed", append(fields, zap.String("error", payout.Error))...)
	} else {
		p.log.Info("payout recorded", fields...)
	}
	return &payout, nil
}

func (p *PayoutService) buildEnvelope(operator *keypair.Full, payout *models.Payout) (string, error) {
	source, err := p.stellarClient.LoadAccount(operator.Address())
	if err != nil {
		return "", err
	}
	tx, err := p.stellarClient.BuildPaymentTx(source, payout.RecipientAccount, payout.AssetCode, payout.AssetIssuer, payout.Amount)
	if err != nil {
		return "", err
	}
	unsigned, err := tx.Base64()
	if err != nil {
		return "", fmt.Errorf("failed to encode transaction to XDR: %w", err)
	}
	return utils.SignTx(unsigned, p.config.OperatorSecret, p.config.NetworkPassphrase)
}

// Find returns the payout recorded for an escrow.
func (p *PayoutService) Find(escrowID ledger.Address) (*models.Payout, error) {
	var payout models.Payout
	err := p.db.Where("escrow_id = ?", escrowID.String()).First(&payout).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: no payout for escrow %s", ledger.ErrNotFound, escrowID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load payout: %w", err)
	}
	return &payout, nil
}
