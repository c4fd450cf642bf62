package service

import (
	"context"

	"signal_bot/internal/models"
	"signal_bot/pkg/logger"
)

// Stdout — заглушка без токена: всё в лог, команд нет.
type Stdout struct{}

func NewStdout() *Stdout { return &Stdout{} }

func (s *Stdout) EntryAlert(_ context.Context, sig *models.Signal) {
	logger.Info("[NOTIFY] ENTRY %s %s %.0f%s @ %.2f SL=%.2f T1=%.2f T2=%.2f T3=%.2f (%s)",
		sig.ID, sig.Instrument, sig.Strike, sig.Direction,
		sig.EntryPrice, sig.StopLoss, sig.Target1, sig.Target2, sig.Target3, sig.Reason)
}

func (s *Stdout) ExitAlert(_ context.Context, sig *models.Signal, reason string, pnl float64) {
	logger.Info("[NOTIFY] EXIT %s (%s) %.2f -> %.2f pnl=%+.2f",
		sig.ID, reason, sig.EntryPrice, sig.ExitPrice, pnl)
}

func (s *Stdout) Summary(_ context.Context, text string) {
	logger.Info("[NOTIFY] %s", text)
}
