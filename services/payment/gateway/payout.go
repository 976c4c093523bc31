package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/piresc/payrelay/internal/pkg/logger"
)

// SimulatedPayoutGW stands in for a crypto transfer provider. It performs no
// transfer and returns a synthetic transfer id.
type SimulatedPayoutGW struct {
	now func() time.Time
}

// NewSimulatedPayoutGW creates the simulated payout gateway
func NewSimulatedPayoutGW() *SimulatedPayoutGW {
	return &SimulatedPayoutGW{now: time.Now}
}

// Transfer pretends to send amount of asset to walletAddress
func (g *SimulatedPayoutGW) Transfer(ctx context.Context, walletAddress string, amount float64, asset string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if walletAddress == "" || asset == "" {
		return "", errors.New("payout requires wallet address and asset")
	}
	if amount <= 0 {
		return "", fmt.Errorf("invalid payout amount %v", amount)
	}

	transferID := fmt.Sprintf("simulated_tx_hash_%d", g.now().UnixMilli())

	logger.InfoCtx(ctx, "Simulated crypto payout dispatched",
		logger.String("asset", asset),
		logger.String("wallet_address", walletAddress),
		logger.Float64("amount", amount),
		logger.String("transfer_id", transferID))

	return transferID, nil
}
