package visual

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	etypes "github.com/go-echarts/go-echarts/v2/types"

	"apex/internal/types"
)

// ObservationInput 是仪表盘图表的数据来源。
type ObservationInput struct {
	TradesPerDay []int
	Trades       []types.Trade
	// MaxReasons 限制原因分布图的柱数，0 表示默认值。
	MaxReasons int
}

const (
	colorBackground    = "#111827"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorDay           = "#2dd4bf"
	colorReason        = "#60a5fa"

	chartWidthPx    = 720
	chartHeightPx   = 320
	defaultReasons  = 8
	reasonLabelRune = 24
)

// ReasonCount is how often one normalised reason was logged.
type ReasonCount struct {
	Reason string
	Count  int
}

// RenderObservation renders the dashboard page: trades per observation day
// and the most frequent trade reasons.
func RenderObservation(in ObservationInput) ([]byte, error) {
	page := components.NewPage()
	page.PageTitle = "Observation"
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(buildDayChart(in.TradesPerDay))
	if reasons := CountReasons(in.Trades, in.MaxReasons); len(reasons) > 0 {
		page.AddCharts(buildReasonChart(reasons))
	}
	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, fmt.Errorf("render observation chart: %w", err)
	}
	return buf.Bytes(), nil
}

func initOpts() opts.Initialization {
	return opts.Initialization{
		Theme:           etypes.ThemeWesteros,
		Width:           fmt.Sprintf("%dpx", chartWidthPx),
		Height:          fmt.Sprintf("%dpx", chartHeightPx),
		BackgroundColor: colorBackground,
	}
}

func buildDayChart(perDay []int) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts()),
		charts.WithTitleOpts(opts.Title{Title: "Trades per observation day", Left: "left", TitleStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Color: colorTextSecondary}}),
		charts.WithYAxisOpts(opts.YAxis{
			MinInterval: 1,
			AxisLabel:   &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextSecondary},
			SplitLine:   &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
		}),
	)
	xAxis := make([]string, len(perDay))
	data := make([]opts.BarData, len(perDay))
	for i, n := range perDay {
		xAxis[i] = fmt.Sprintf("Day %d", i+1)
		data[i] = opts.BarData{Value: n, ItemStyle: &opts.ItemStyle{Color: colorDay}}
	}
	bar.SetXAxis(xAxis)
	bar.AddSeries("Trades", data)
	return bar
}

func buildReasonChart(reasons []ReasonCount) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts()),
		charts.WithTitleOpts(opts.Title{Title: "Most logged reasons", Left: "left", TitleStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Color: colorTextSecondary, Rotate: 20}}),
		charts.WithYAxisOpts(opts.YAxis{
			MinInterval: 1,
			AxisLabel:   &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextSecondary},
		}),
	)
	xAxis := make([]string, len(reasons))
	data := make([]opts.BarData, len(reasons))
	for i, r := range reasons {
		xAxis[i] = shorten(r.Reason, reasonLabelRune)
		data[i] = opts.BarData{Value: r.Count, ItemStyle: &opts.ItemStyle{Color: colorReason}}
	}
	bar.SetXAxis(xAxis)
	bar.AddSeries("Reasons", data)
	return bar
}

// CountReasons groups reasons case-insensitively, most frequent first,
// ties in first-seen order.
func CountReasons(trades []types.Trade, limit int) []ReasonCount {
	if limit <= 0 {
		limit = defaultReasons
	}
	index := make(map[string]int)
	var out []ReasonCount
	for _, t := range trades {
		key := strings.ToLower(strings.Join(strings.Fields(t.Reason), " "))
		if key == "" {
			continue
		}
		if i, ok := index[key]; ok {
			out[i].Count++
			continue
		}
		index[key] = len(out)
		out = append(out, ReasonCount{Reason: key, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func shorten(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
