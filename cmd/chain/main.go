package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"signal_bot/internal/gateway"
	"signal_bot/internal/helper"
	"signal_bot/internal/modules/config"
	"signal_bot/internal/oi"
	"signal_bot/pkg/logger"
)

// Отладочная утилита: снять опционную цепочку с шлюза, показать
// OI-матрицу и вердикт анализатора. Два снятия с паузой, чтобы
// дельты OI были настоящими, а не нулевой базой.
func main() {
	instrument := flag.String("instrument", "NIFTY", "имя инструмента из конфига")
	wait := flag.Duration("wait", 30*time.Second, "пауза между двумя снятиями цепочки")
	flag.Parse()

	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}
	logger.SetServiceName("chain_debug")

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	gw := gateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.WSURL, cfg.Gateway.APIKey)
	an := oi.NewAnalyzer(cfg.Engine.OI)

	now := time.Now().In(helper.MarketLocation())

	strikes, err := gw.OptionChainOI(ctx, *instrument)
	if err != nil {
		log.Fatalf("option chain: %v", err)
	}
	_, base := an.Analyze(*instrument, strikes, 0, 0, now)
	fmt.Printf("База: %d страйков, CALL OI %.0f / PUT OI %.0f, PCR %.2f\n",
		len(strikes), base.TotalCallOI, base.TotalPutOI, base.PutCallRatio)

	fmt.Printf("Ждём %s до второго снятия...\n", *wait)
	time.Sleep(*wait)

	strikes, err = gw.OptionChainOI(ctx, *instrument)
	if err != nil {
		log.Fatalf("option chain (2nd): %v", err)
	}
	analysis, snap := an.Analyze(*instrument, strikes, 0, 0, time.Now().In(helper.MarketLocation()))

	sort.Slice(strikes, func(i, j int) bool { return strikes[i].Strike < strikes[j].Strike })
	fmt.Println("\nStrike      CALL OI      PUT OI")
	for _, s := range strikes {
		fmt.Printf("%8.0f %12.0f %12.0f\n", s.Strike, s.CallOI, s.PutOI)
	}

	fmt.Printf("\nPCR %.2f (сдвиг %+.2f), ΔCALL %+.2f%%, ΔPUT %+.2f%%\n",
		snap.PutCallRatio, snap.PCRShift, snap.CallOIChangePct, snap.PutOIChangePct)
	fmt.Printf("Вердикт: bias=%s pattern=%s conf=%.0f tradable=%v\n  %s\n",
		analysis.Bias, analysis.Pattern, analysis.Confidence, analysis.Tradable, analysis.Reason)
	fmt.Printf("Уровни: support %.0f / resistance %.0f\n", analysis.Support, analysis.Resistance)

	os.Exit(0)
}
