package portfolio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/STTM-NSU/portfolio-dashboard/internal/logger"
	"github.com/STTM-NSU/portfolio-dashboard/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `# name:code:buy_price:qty
삼성전자:005930:50000:10
NAVER:035420.KS:210,000:3

에코프로비엠:247540.KQ:120000:5:note
REALIZED_PROFIT=150000
broken line
Bad qty:000660:100000:zero
`

func TestParse(t *testing.T) {
	p, skipped, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	require.Len(t, p.Positions, 3)
	assert.Equal(t, model.Position{Name: "삼성전자", Code: "005930", BuyPrice: 50000, Qty: 10}, p.Positions[0])
	assert.Equal(t, 210000.0, p.Positions[1].BuyPrice)
	assert.Equal(t, "247540.KQ", p.Positions[2].Code)
	assert.Equal(t, int64(5), p.Positions[2].Qty)
	assert.Equal(t, 150000.0, p.RealizedProfit)

	require.Len(t, skipped, 2)
	assert.Equal(t, 7, skipped[0].Line)
	assert.ErrorIs(t, skipped[0], ErrMalformedLine)
	assert.Equal(t, 8, skipped[1].Line)
}

func TestParseRejectsNonPositive(t *testing.T) {
	tests := []string{
		"A:005930:0:10",
		"A:005930:-5:10",
		"A:005930:100:0",
		"A::100:1",
		"REALIZED_PROFIT=abc",
	}
	for _, line := range tests {
		p, skipped, err := Parse(strings.NewReader(line))
		require.NoError(t, err, line)
		assert.Empty(t, p.Positions, line)
		assert.Len(t, skipped, 1, line)
	}
}

func TestParseNegativeRealizedProfit(t *testing.T) {
	p, skipped, err := Parse(strings.NewReader("REALIZED_PROFIT=-12,500.5\n"))
	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Equal(t, -12500.5, p.RealizedProfit)
}

func TestParseEmpty(t *testing.T) {
	p, skipped, err := Parse(strings.NewReader("\n# nothing here\n"))
	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Empty(t, p.Positions)
	assert.Equal(t, 0.0, p.RealizedProfit)
}

func TestPortfolioReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio.txt")
	require.NoError(t, os.WriteFile(path, []byte("A:005930:100:1\n"), 0o600))

	p := NewPortfolio(path, logger.NewNopLogger())
	assert.Len(t, p.Get().Positions, 1)

	require.NoError(t, os.WriteFile(path, []byte("A:005930:100:1\nB:000660:200:2\nREALIZED_PROFIT=10\n"), 0o600))
	loaded, err := p.Reload()
	require.NoError(t, err)
	assert.Len(t, loaded.Positions, 2)
	assert.Equal(t, 10.0, p.Get().RealizedProfit)

	pos, ok := p.GetPosition("000660")
	require.True(t, ok)
	assert.Equal(t, "B", pos.Name)

	require.NoError(t, os.Remove(path))
	_, err = p.Reload()
	assert.Error(t, err)
	assert.Len(t, p.Get().Positions, 2, "failed reload keeps previous portfolio")
}

func TestPortfolioGetMissingFile(t *testing.T) {
	p := NewPortfolio(filepath.Join(t.TempDir(), "missing.txt"), logger.NewNopLogger())
	assert.Empty(t, p.Get().Positions)
}
