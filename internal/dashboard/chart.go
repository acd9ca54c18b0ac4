package dashboard

import (
	"bytes"
	"fmt"
	"math"

	"github.com/STTM-NSU/portfolio-dashboard/internal/config"
	"github.com/STTM-NSU/portfolio-dashboard/internal/invest/techan"
	"github.com/STTM-NSU/portfolio-dashboard/internal/model"
	"github.com/STTM-NSU/portfolio-dashboard/internal/tools"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var (
	_upColor     = drawing.ColorFromHex("ef4444")
	_downColor   = drawing.ColorFromHex("3b82f6")
	_fastMAColor = drawing.ColorFromHex("fbbf24")
	_slowMAColor = drawing.ColorFromHex("c084fc")
)

// candleSeries draws OHLC bodies and wicks with the bar index as x.
type candleSeries struct {
	name    string
	candles []model.Candle
}

func (s candleSeries) GetName() string { return s.name }
func (s candleSeries) GetYAxis() chart.YAxisType { return chart.YAxisPrimary }
func (s candleSeries) GetStyle() chart.Style { return chart.Style{} }
func (s candleSeries) Len() int { return len(s.candles) }
func (s candleSeries) GetBoundedValues(i int) (float64, float64, float64) {
	c := s.candles[i]
	return float64(i), c.High, c.Low
}

func (s candleSeries) Validate() error {
	if len(s.candles) == 0 {
		return fmt.Errorf("candle series %q has no candles", s.name)
	}
	return nil
}

func (s candleSeries) Render(r chart.Renderer, canvasBox chart.Box, xrange, yrange chart.Range, _ chart.Style) {
	if len(s.candles) == 0 {
		return
	}

	step := float64(canvasBox.Width()) / float64(len(s.candles))
	half := max(int(step*0.35), 1)

	for i, c := range s.candles {
		color := _upColor
		if c.Close < c.Open {
			color = _downColor
		}

		x := canvasBox.Left + xrange.Translate(float64(i))
		high := canvasBox.Bottom - yrange.Translate(c.High)
		low := canvasBox.Bottom - yrange.Translate(c.Low)
		top := canvasBox.Bottom - yrange.Translate(math.Max(c.Open, c.Close))
		bottom := canvasBox.Bottom - yrange.Translate(math.Min(c.Open, c.Close))
		if bottom-top < 1 {
			bottom = top + 1
		}

		r.SetStrokeColor(color)
		r.SetStrokeWidth(1)
		r.MoveTo(x, high)
		r.LineTo(x, low)
		r.Stroke()

		chart.Draw.Box(r, chart.Box{Top: top, Left: x - half, Right: x + half, Bottom: bottom}, chart.Style{
			FillColor:   color,
			StrokeColor: color,
			StrokeWidth: 1,
		})
	}
}

// RenderCandles draws the last cfg.Candles daily candles with fast and slow moving
// averages computed over the whole history, as SVG.
func RenderCandles(candles []model.Candle, cfg config.ChartConfig) ([]byte, error) {
	if len(candles) < 2 {
		return nil, fmt.Errorf("need at least 2 candles, got %d", len(candles))
	}

	closes := model.SeriesFromCandles(candles).Closes()
	fast := techan.SMA(closes, cfg.FastMA)
	slow := techan.SMA(closes, cfg.SlowMA)

	start := max(len(candles)-cfg.Candles, 0)
	window := candles[start:]

	series := []chart.Series{candleSeries{name: "candles", candles: window}}
	if s, ok := maSeries(fmt.Sprintf("MA%d", cfg.FastMA), fast[start:], _fastMAColor); ok {
		series = append(series, s)
	}
	if s, ok := maSeries(fmt.Sprintf("MA%d", cfg.SlowMA), slow[start:], _slowMAColor); ok {
		series = append(series, s)
	}

	graph := chart.Chart{
		Width:  cfg.Width,
		Height: cfg.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 10, Left: 5, Right: 5, Bottom: 5},
		},
		XAxis: chart.XAxis{
			ValueFormatter: func(v interface{}) string {
				f, ok := v.(float64)
				if !ok {
					return ""
				}
				i := int(math.Round(f))
				if i < 0 || i >= len(window) {
					return ""
				}
				return window[i].Ts.Format("01/02")
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return tools.FormatAmount(f, 0)
				}
				return ""
			},
		},
		Series: series,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.SVG, &buf); err != nil {
		return nil, fmt.Errorf("%w: can't render candle chart", err)
	}

	return buf.Bytes(), nil
}

func maSeries(name string, values []float64, color drawing.Color) (chart.ContinuousSeries, bool) {
	xs := make([]float64, 0, len(values))
	ys := make([]float64, 0, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		xs = append(xs, float64(i))
		ys = append(ys, v)
	}
	if len(xs) < 2 {
		return chart.ContinuousSeries{}, false
	}

	return chart.ContinuousSeries{
		Name: name,
		Style: chart.Style{
			StrokeColor: color,
			StrokeWidth: 1.5,
		},
		XValues: xs,
		YValues: ys,
	}, true
}
