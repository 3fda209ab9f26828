package main

import (
	"encoding/json"
	"fmt"
	"math"
	"runtime"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/meenmo/fxtree/analytic"
	"github.com/meenmo/fxtree/cmd/barrierprice/internal/input"
	"github.com/meenmo/fxtree/fx"
	"github.com/meenmo/fxtree/pricer"
	"github.com/meenmo/fxtree/utils"
)

func (a *app) load(path string) (*input.Case, error) {
	if path == "" {
		return nil, fmt.Errorf("--input is required")
	}
	f, err := input.Load(path)
	if err != nil {
		return nil, err
	}
	return f.Build()
}

func (a *app) pricer(steps int) (*pricer.ImpliedTreeBarrierPricer, error) {
	if steps == 0 {
		steps = a.cfg.Steps
	}
	return pricer.NewImpliedTreeBarrierPricer(steps, pricer.WithConfig(a.cfg), pricer.WithLogger(a.logger))
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// reference is the Reiner-Rubinstein price at the expiry zero rates and the
// volatility at the strike; exact only for flat markets.
func reference(c *input.Case, T float64) (float64, error) {
	u := c.Option.Underlying
	spot, err := c.Rates.FxRate(u.Pair)
	if err != nil {
		return 0, err
	}
	base, err := c.Rates.DiscountFactors(u.Pair.Base)
	if err != nil {
		return 0, err
	}
	counter, err := c.Rates.DiscountFactors(u.Pair.Counter)
	if err != nil {
		return 0, err
	}
	r, q := counter.ZeroRate(T), base.ZeroRate(T)
	vol, err := c.Vols.Volatility(u.Pair, T, u.Strike, spot*math.Exp((r-q)*T))
	if err != nil {
		return 0, err
	}
	b := c.Option.Barrier
	level := b.LevelAt(u.Expiry)
	rebate := 0.0
	if rb := c.Option.Rebate; rb != nil {
		rebate = rb.Float64() / u.Notional.InexactFloat64()
		if rb.Currency == u.Pair.Base {
			rebate *= level
		}
	}
	return analytic.BarrierPrice(spot, u.Strike, T, r-q, r, vol, u.PutCall == fx.Call, analytic.Barrier{
		Up:      b.Type() == fx.Up,
		KnockIn: b.Knock() == fx.KnockIn,
		Level:   level,
		Rebate:  rebate,
	}), nil
}

type priceOutput struct {
	Pair          string  `json:"pair"`
	Steps         int     `json:"steps"`
	Price         float64 `json:"price"`
	PresentValue  string  `json:"present_value"`
	Reference     float64 `json:"reference"`
	FallbackNodes int     `json:"fallback_nodes"`
}

func newPriceCmd(a *app) *cobra.Command {
	var (
		path  string
		steps int
	)
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Price the option in the input file",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.load(path)
			if err != nil {
				return err
			}
			p, err := a.pricer(steps)
			if err != nil {
				return err
			}
			data, err := p.Calibrate(c.Option, c.Rates, c.Vols)
			if err != nil {
				return err
			}
			price, err := p.PriceWithData(c.Option, c.Rates, c.Vols, data)
			if err != nil {
				return err
			}
			ref, err := reference(c, data.TimeToExpiry())
			if err != nil {
				return err
			}
			u := c.Option.Underlying
			pv := fx.CurrencyAmount{
				Currency: u.Pair.Counter,
				Amount:   decimal.NewFromFloat(price * u.LongShort.Sign()).Mul(u.Notional),
			}
			return a.writeJSON(priceOutput{
				Pair:          c.Option.Underlying.Pair.String(),
				Steps:         p.Steps(),
				Price:         price,
				PresentValue:  pv.Rounded(2).String(),
				Reference:     ref,
				FallbackNodes: data.FallbackNodes(),
			})
		},
	}
	cmd.Flags().StringVar(&path, "input", "", "TOML market and option file")
	cmd.Flags().IntVar(&steps, "steps", 0, "tree steps (default from config)")
	return cmd
}

type calibrateOutput struct {
	Steps         int     `json:"steps"`
	TimeToExpiry  float64 `json:"time_to_expiry"`
	Dt            float64 `json:"dt"`
	SpanLow       float64 `json:"span_low"`
	SpanHigh      float64 `json:"span_high"`
	FallbackNodes int     `json:"fallback_nodes"`
}

func newCalibrateCmd(a *app) *cobra.Command {
	var (
		path  string
		steps int
	)
	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Calibrate the implied tree and summarise it",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.load(path)
			if err != nil {
				return err
			}
			p, err := a.pricer(steps)
			if err != nil {
				return err
			}
			data, err := p.Calibrate(c.Option, c.Rates, c.Vols)
			if err != nil {
				return err
			}
			lo, hi := data.Span(data.Steps())
			return a.writeJSON(calibrateOutput{
				Steps:         data.Steps(),
				TimeToExpiry:  data.TimeToExpiry(),
				Dt:            data.Dt(),
				SpanLow:       utils.RoundTo(lo, 8),
				SpanHigh:      utils.RoundTo(hi, 8),
				FallbackNodes: data.FallbackNodes(),
			})
		},
	}
	cmd.Flags().StringVar(&path, "input", "", "TOML market and option file")
	cmd.Flags().IntVar(&steps, "steps", 0, "tree steps (default from config)")
	return cmd
}

type convergeRow struct {
	Steps     int     `json:"steps"`
	Price     float64 `json:"price"`
	Reference float64 `json:"reference"`
	Error     float64 `json:"error"`
}

func newConvergeCmd(a *app) *cobra.Command {
	var (
		path         string
		from, to, by int
	)
	cmd := &cobra.Command{
		Use:   "converge",
		Short: "Price over a range of step counts against the closed form",
		RunE: func(cmd *cobra.Command, args []string) error {
			if from < 3 || to < from || by <= 0 {
				return fmt.Errorf("need 3 <= from <= to and by > 0")
			}
			c, err := a.load(path)
			if err != nil {
				return err
			}
			T := c.Vols.RelativeTime(c.Option.Underlying.Expiry)
			ref, err := reference(c, T)
			if err != nil {
				return err
			}

			var rows []convergeRow
			for n := from; n <= to; n += by {
				rows = append(rows, convergeRow{Steps: n, Reference: ref})
			}
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(runtime.GOMAXPROCS(0))
			for i := range rows {
				i := i
				g.Go(func() error {
					if err := ctx.Err(); err != nil {
						return err
					}
					p, err := a.pricer(rows[i].Steps)
					if err != nil {
						return err
					}
					price, err := p.Price(c.Option, c.Rates, c.Vols)
					if err != nil {
						return fmt.Errorf("%d steps: %w", rows[i].Steps, err)
					}
					rows[i].Price = price
					rows[i].Error = price - ref
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			return a.writeJSON(rows)
		},
	}
	cmd.Flags().StringVar(&path, "input", "", "TOML market and option file")
	cmd.Flags().IntVar(&from, "from", 11, "smallest step count")
	cmd.Flags().IntVar(&to, "to", 151, "largest step count")
	cmd.Flags().IntVar(&by, "by", 10, "step count increment")
	return cmd
}

func newGreeksCmd(a *app) *cobra.Command {
	var (
		path  string
		steps int
	)
	cmd := &cobra.Command{
		Use:   "greeks",
		Short: "Bump-and-revalue sensitivities per unit notional",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.load(path)
			if err != nil {
				return err
			}
			p, err := a.pricer(steps)
			if err != nil {
				return err
			}
			g, err := p.Sensitivities(cmd.Context(), c.Option, c.Rates, c.Vols)
			if err != nil {
				return err
			}
			return a.writeJSON(map[string]float64{
				"price": g.Price,
				"delta": g.Delta,
				"gamma": g.Gamma,
				"vega":  g.Vega,
				"rho":   g.Rho,
			})
		},
	}
	cmd.Flags().StringVar(&path, "input", "", "TOML market and option file")
	cmd.Flags().IntVar(&steps, "steps", 0, "tree steps (default from config)")
	return cmd
}
