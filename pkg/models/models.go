package models

import (
	"time"

	"github.com/google/uuid"
)

// TokenRisk is the latest computed risk snapshot for one tracked token.
// Exactly one row exists per token_id; every successful recompute overwrites
// the mutable fields in place and bumps updated_at.
//
// Score semantics: volatility_30d is the 30-day volatility as a percentage of
// the mean price, liquidity_score is the volume/market-cap ratio in percent
// (both "higher is worse" inputs to the overall score), while sentiment_score
// and contract_risk_score are stored pre-inversion on a 0-100 "higher is
// better" scale. overall_risk_score is 0-100, higher is worse.
type TokenRisk struct {
	ID                uuid.UUID `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	TokenID           string    `json:"token_id" gorm:"uniqueIndex;not null" validate:"required,max=128"`
	Symbol            string    `json:"symbol" gorm:"not null" validate:"required,max=32"`
	Volatility30d     *float64  `json:"volatility_30d" gorm:"column:volatility_30d"`
	LiquidityScore    *float64  `json:"liquidity_score"`
	SentimentScore    *float64  `json:"sentiment_score"`
	ContractRiskScore *float64  `json:"contract_risk_score"`
	OverallRiskScore  *float64  `json:"overall_risk_score" validate:"omitempty,min=0,max=100"`
	UpdatedAt         time.Time `json:"updated_at" gorm:"not null"`
}

// TableName overrides the gorm table name to match the migration
func (TokenRisk) TableName() string {
	return "token_risks"
}

// RiskReport is a scoring result that has not been persisted.
// All fields are rounded to two decimal places.
type RiskReport struct {
	TokenID           string  `json:"token_id"`
	Symbol            string  `json:"symbol"`
	Volatility30d     float64 `json:"volatility_30d"`
	LiquidityScore    float64 `json:"liquidity_score"`
	SentimentScore    float64 `json:"sentiment_score"`
	ContractRiskScore float64 `json:"contract_risk_score"`
	OverallRiskScore  float64 `json:"overall_risk_score"`
}

// NonceResponse carries a nonce to be signed by the client's wallet
type NonceResponse struct {
	Nonce string `json:"nonce"`
}

// VerifySignatureRequest is the wallet-signature login payload
type VerifySignatureRequest struct {
	Address   string `json:"address" binding:"required" validate:"required,min=4,max=128"`
	PublicKey string `json:"public_key" binding:"required" validate:"required,hexadecimal,len=64"`
	Nonce     string `json:"nonce" binding:"required" validate:"required,hexadecimal"`
	Signature string `json:"signature" binding:"required" validate:"required,base64"`
}

// TokenResponse carries an issued bearer credential
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// RiskCalculateRequest asks for an unpersisted scoring preview
type RiskCalculateRequest struct {
	TokenID string `json:"token_id" binding:"required" validate:"required,max=128"`
}
