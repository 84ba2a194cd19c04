package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stellar/go/keypair"
	"github.com/yourusername/invoice-factoring/config"
	"github.com/yourusername/invoice-factoring/middleware"
	"github.com/yourusername/invoice-factoring/models"
	"github.com/yourusername/invoice-factoring/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	challengeAudience = "auth-challenge"
	challengeTTL      = 5 * time.Minute
	accessTokenTTL    = 15 * time.Minute
	refreshTokenTTL   = 7 * 24 * time.Hour
)

type AuthHandler struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Log      *zap.Logger
	operator string
}

func NewAuthHandler(db *gorm.DB, cfg *config.Config, log *zap.Logger) *AuthHandler {
	h := &AuthHandler{DB: db, Cfg: cfg, Log: log}
	if kp, err := keypair.ParseFull(cfg.OperatorSecret); err == nil {
		h.operator = kp.Address()
	}
	return h
}

type ChallengeRequest struct {
	Address string `json:"address" binding:"required"`
}

// challengeClaims binds a random nonce to the address asked to sign it.
type challengeClaims struct {
	Nonce string `json:"nonce"`
	jwt.RegisteredClaims
}

// Challenge issues a short-lived token the account must sign with its key.
func (h *AuthHandler) Challenge(c *gin.Context) {
	var req ChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	address, err := parseAccount("address", req.Address)
	if err != nil {
		respondError(c, err)
		return
	}

	now := time.Now()
	claims := challengeClaims{
		Nonce: uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   address.String(),
			Audience:  jwt.ClaimStrings{challengeAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(challengeTTL)),
		},
	}
	challenge, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.Cfg.JWTSecret))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate challenge"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"challenge":  challenge,
		"expires_at": claims.ExpiresAt.Time,
	})
}

type TokenRequest struct {
	Challenge string `json:"challenge" binding:"required"`
	Signature string `json:"signature" binding:"required"` // base64 ed25519 signature of the challenge
}

// Token exchanges a signed challenge for access and refresh tokens.
func (h *AuthHandler) Token(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims := &challengeClaims{}
	token, err := jwt.ParseWithClaims(req.Challenge, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(h.Cfg.JWTSecret), nil
	}, jwt.WithAudience(challengeAudience))
	if err != nil || !token.Valid {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired challenge", "code": "InvalidChallenge"})
		return
	}

	signature, err := base64.StdEncoding.DecodeString(req.Signature)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature must be base64"})
		return
	}
	if err := utils.VerifySignature(claims.Subject, []byte(req.Challenge), signature); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature", "code": "InvalidSignature"})
		return
	}

	account, err := h.upsertAccount(claims.Subject)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load account"})
		return
	}
	if !account.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is inactive"})
		return
	}
	h.Log.Info("account signed in", zap.String("address", account.StellarAddress), zap.String("role", account.Role))
	h.issueTokens(c, account)
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh handles token refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Validate refresh token using the refresh secret
	claims := &middleware.Claims{}
	token, err := jwt.ParseWithClaims(req.RefreshToken, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(h.Cfg.JWTRefreshSecret), nil
	})

	if err != nil || !token.Valid {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token", "code": "InvalidToken"})
		return
	}

	// Fetch the account to ensure it still exists and is active
	var account models.Account
	if err := h.DB.Where("stellar_address = ?", claims.Address).First(&account).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Account not found"})
		return
	}

	if !account.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is inactive"})
		return
	}

	h.issueTokens(c, &account)
}

func (h *AuthHandler) issueTokens(c *gin.Context, account *models.Account) {
	accessToken, err := middleware.GenerateToken(account.StellarAddress, account.Role, h.Cfg.JWTSecret, accessTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate access token"})
		return
	}

	refreshToken, err := middleware.GenerateToken(account.StellarAddress, account.Role, h.Cfg.JWTRefreshSecret, refreshTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate refresh token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"address":       account.StellarAddress,
		"role":          account.Role,
	})
}

// upsertAccount loads the account for address, creating it on first sign in.
// The operator's own address is always an admin.
func (h *AuthHandler) upsertAccount(address string) (*models.Account, error) {
	now := time.Now()
	role := models.RoleInvestor
	if address == h.operator {
		role = models.RoleAdmin
	}

	var account models.Account
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("stellar_address = ?", address).First(&account).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			account = models.Account{StellarAddress: address, Role: role, IsActive: true, LastLoginAt: &now}
			return tx.Create(&account).Error
		case err != nil:
			return err
		}
		updates := map[string]interface{}{"last_login_at": now}
		if role == models.RoleAdmin && account.Role != models.RoleAdmin {
			updates["role"] = role
			account.Role = role
		}
		account.LastLoginAt = &now
		return tx.Model(&account).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}
