package portfolio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/STTM-NSU/portfolio-dashboard/internal/model"
	"github.com/STTM-NSU/portfolio-dashboard/internal/tools"
)

const (
	_realizedProfitKey = "REALIZED_PROFIT="
	_commentPrefix     = "#"
	_fieldSeparator    = ":"
)

var ErrMalformedLine = errors.New("malformed portfolio line")

type LineError struct {
	Line int
	Text string
	Err  error
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d %q: %s", e.Line, e.Text, e.Err)
}

func (e LineError) Unwrap() error {
	return e.Err
}

// Parse reads "name:code:buy_price:qty" lines and an optional REALIZED_PROFIT=<number>.
// Malformed lines are skipped and returned as LineErrors, the remaining lines still load.
func Parse(r io.Reader) (model.Portfolio, []LineError, error) {
	var (
		p       model.Portfolio
		skipped []LineError
	)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if line == "" || strings.HasPrefix(line, _commentPrefix) {
			continue
		}

		if value, ok := strings.CutPrefix(line, _realizedProfitKey); ok {
			profit, err := tools.ParseNumber(value)
			if err != nil {
				skipped = append(skipped, LineError{Line: lineNo, Text: line, Err: fmt.Errorf("%w: %s", ErrMalformedLine, err)})
				continue
			}
			p.RealizedProfit = profit
			continue
		}

		pos, err := parsePosition(line)
		if err != nil {
			skipped = append(skipped, LineError{Line: lineNo, Text: line, Err: err})
			continue
		}
		p.Positions = append(p.Positions, pos)
	}
	if err := scanner.Err(); err != nil {
		return model.Portfolio{}, skipped, fmt.Errorf("%w: can't read portfolio", err)
	}

	return p, skipped, nil
}

func parsePosition(line string) (model.Position, error) {
	parts := strings.Split(line, _fieldSeparator)
	if len(parts) < 4 {
		return model.Position{}, fmt.Errorf("%w: expected name:code:buy_price:qty", ErrMalformedLine)
	}

	name := strings.TrimSpace(parts[0])
	code := strings.TrimSpace(parts[1])
	if code == "" {
		return model.Position{}, fmt.Errorf("%w: empty code", ErrMalformedLine)
	}

	buyPrice, err := tools.ParseNumber(parts[2])
	if err != nil {
		return model.Position{}, fmt.Errorf("%w: buy price: %s", ErrMalformedLine, err)
	}
	if buyPrice <= 0 {
		return model.Position{}, fmt.Errorf("%w: buy price must be positive", ErrMalformedLine)
	}

	qty, err := strconv.ParseInt(strings.ReplaceAll(strings.TrimSpace(parts[3]), ",", ""), 10, 64)
	if err != nil {
		return model.Position{}, fmt.Errorf("%w: qty: %s", ErrMalformedLine, err)
	}
	if qty <= 0 {
		return model.Position{}, fmt.Errorf("%w: qty must be positive", ErrMalformedLine)
	}

	return model.Position{
		Name:     name,
		Code:     code,
		BuyPrice: buyPrice,
		Qty:      qty,
	}, nil
}
