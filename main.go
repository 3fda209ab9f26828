package main

import (
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meenmo/fxtree/curve"
	"github.com/meenmo/fxtree/fx"
	"github.com/meenmo/fxtree/market"
	"github.com/meenmo/fxtree/pricer"
)

func main() {
	valuation := time.Date(2011, 6, 13, 0, 0, 0, 0, time.UTC)
	eurusd := fx.CurrencyPair{Base: fx.EUR, Counter: fx.USD}

	rates, err := market.NewImmutableRatesProvider(valuation,
		map[fx.CurrencyPair]float64{eurusd: 1.4},
		map[fx.Currency]market.DiscountFactors{
			fx.EUR: curve.Flat(0.015),
			fx.USD: curve.Flat(0.011),
		})
	if err != nil {
		log.Fatal(err)
	}
	vols := market.FlatVolatility{Pair: eurusd, Valuation: valuation, Vol: 0.18}

	call, err := fx.NewVanillaOption(fx.Long, fx.Call, eurusd, 1.45,
		decimal.NewFromInt(100_000_000), valuation.AddDate(1, 0, 0))
	if err != nil {
		log.Fatal(err)
	}
	rebate := fx.NewCurrencyAmount(fx.USD, 5_000_000)
	dko, err := fx.NewSingleBarrierOption(call,
		fx.ConstantContinuousBarrier{BarrierType: fx.Down, KnockType: fx.KnockOut, Level: 1.25}, &rebate)
	if err != nil {
		log.Fatal(err)
	}

	p, err := pricer.NewImpliedTreeBarrierPricer(101)
	if err != nil {
		log.Fatal(err)
	}
	price, err := p.Price(dko, rates, vols)
	if err != nil {
		log.Fatal(err)
	}
	pv, err := p.PresentValue(dko, rates, vols)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Price: %.6f\n", price)
	fmt.Printf("PV: %s\n", pv.Rounded(2))
}
