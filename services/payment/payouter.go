package payment

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SimulatedPrefix marks transfer ids minted without moving real money.
const SimulatedPrefix = "SIM_PAYOUT_"

// Payouter moves provider earnings out of the platform.
type Payouter interface {
	Transfer(ctx context.Context, req TransferRequest) (string, error)
	Reverse(ctx context.Context, transferID, idempotencyKey string) error
	Simulated() bool
}

// NewPayouter picks the payout strategy for the configured mode.
func NewPayouter(simulated bool, gw Gateway, logger *zap.Logger) Payouter {
	if simulated {
		return NewSimulatedPayouter(logger)
	}
	return NewGatewayPayouter(gw, logger)
}

// SimulatedPayouter records payouts without calling the processor.
type SimulatedPayouter struct {
	logger *zap.Logger
}

func NewSimulatedPayouter(logger *zap.Logger) *SimulatedPayouter {
	return &SimulatedPayouter{logger: logger}
}

func (p *SimulatedPayouter) Transfer(ctx context.Context, req TransferRequest) (string, error) {
	id := SimulatedPrefix + uuid.New().String()
	p.logger.Info("simulated payout",
		zap.String("transferId", id),
		zap.String("destination", req.Destination),
		zap.Int64("amount", req.Amount),
		zap.String("currency", req.Currency))
	return id, nil
}

func (p *SimulatedPayouter) Reverse(ctx context.Context, transferID, idempotencyKey string) error {
	p.logger.Info("simulated payout reversal", zap.String("transferId", transferID))
	return nil
}

func (p *SimulatedPayouter) Simulated() bool { return true }

// GatewayPayouter pays out through real processor transfers.
type GatewayPayouter struct {
	gw     Gateway
	logger *zap.Logger
}

func NewGatewayPayouter(gw Gateway, logger *zap.Logger) *GatewayPayouter {
	return &GatewayPayouter{gw: gw, logger: logger}
}

func (p *GatewayPayouter) Transfer(ctx context.Context, req TransferRequest) (string, error) {
	return p.gw.CreateTransfer(ctx, req)
}

// Reverse skips ids minted while payouts were simulated.
func (p *GatewayPayouter) Reverse(ctx context.Context, transferID, idempotencyKey string) error {
	if strings.HasPrefix(transferID, SimulatedPrefix) {
		p.logger.Warn("skipping reversal of simulated payout", zap.String("transferId", transferID))
		return nil
	}
	return p.gw.ReverseTransfer(ctx, transferID, idempotencyKey)
}

func (p *GatewayPayouter) Simulated() bool { return false }
