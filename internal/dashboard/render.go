package dashboard

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/STTM-NSU/portfolio-dashboard/internal/invest/techan"
	"github.com/STTM-NSU/portfolio-dashboard/internal/tools"
	"github.com/STTM-NSU/portfolio-dashboard/internal/valuation"
)

//go:embed templates/*.html
var _templates embed.FS

var _funcs = template.FuncMap{
	"amount": func(v float64) string { return tools.FormatAmount(v, 0) },
	"price":  func(v float64) string { return tools.FormatAmount(v, 2) },
	"signed": func(v float64) string { return tools.FormatSigned(v, 0) },
	"pct":    tools.FormatPct,
	"deref": func(v *float64) float64 {
		if v == nil {
			return 0
		}
		return *v
	},
	"extended": func(c StockCard) bool {
		_, ok := valuation.ActivePrice(c.Quote)
		return ok
	},
	"direction": func(v float64) string {
		switch {
		case v > 0:
			return "up"
		case v < 0:
			return "down"
		default:
			return "flat"
		}
	},
	"trend": trendMessage,
	// chart output comes from RenderCandles only, never from user input
	"svg": func(b []byte) template.HTML { return template.HTML(b) },
}

func trendMessage(t techan.Trend, days int) string {
	switch t {
	case techan.TrendAbove:
		return fmt.Sprintf("생명선(%d일선) 돌파! 추세 양호", days)
	case techan.TrendBelow:
		return fmt.Sprintf("%d일선 밑으로 무너짐. 단기 관망 보수적 접근 필요", days)
	default:
		return "이동평균 계산에 필요한 데이터 부족"
	}
}

var _dashboardTemplate = template.Must(
	template.New("dashboard.html").Funcs(_funcs).ParseFS(_templates, "templates/dashboard.html"),
)

func Render(w io.Writer, s *Snapshot) error {
	if err := _dashboardTemplate.Execute(w, s); err != nil {
		return fmt.Errorf("%w: can't render dashboard", err)
	}
	return nil
}
