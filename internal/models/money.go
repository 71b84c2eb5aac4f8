package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

const moneyPlaces = 2

var fenPerYuan = decimal.NewFromInt(100)

// Money 以元为单位、固定两位小数的金额，入库、序列化与比较都按分对齐
type Money struct {
	decimal.Decimal
}

func NewMoneyFromDecimal(amount decimal.Decimal) Money {
	return Money{Decimal: amount.Round(moneyPlaces)}
}

func NewMoneyFromString(raw string) (Money, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return Money{}, fmt.Errorf("invalid money %q: %w", raw, err)
	}
	return NewMoneyFromDecimal(d), nil
}

// MoneyFromFen 分转元
func MoneyFromFen(fen int64) Money {
	return Money{Decimal: decimal.NewFromInt(fen).Div(fenPerYuan).Round(moneyPlaces)}
}

// MustMoney 仅用于种子数据与测试
func MustMoney(raw string) Money {
	m, err := NewMoneyFromString(raw)
	if err != nil {
		panic(err)
	}
	return m
}

// Fen 元转分
func (m Money) Fen() int64 {
	return m.Decimal.Round(moneyPlaces).Mul(fenPerYuan).IntPart()
}

// Equal 按分比较
func (m Money) Equal(other Money) bool {
	return m.Fen() == other.Fen()
}

func (m Money) IsPositive() bool {
	return m.Fen() > 0
}

func (m Money) String() string {
	return m.Decimal.Round(moneyPlaces).StringFixed(moneyPlaces)
}

// MarshalJSON 输出 "12.30" 形式的字符串，避免前端浮点误差
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON 接受字符串或数字；数字按字面量解析，不经过 float64
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	raw := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
	}
	parsed, err := NewMoneyFromString(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m Money) Value() (driver.Value, error) {
	return m.Decimal.Round(moneyPlaces).Value()
}

func (m *Money) Scan(value interface{}) error {
	if err := m.Decimal.Scan(value); err != nil {
		return err
	}
	m.Decimal = m.Decimal.Round(moneyPlaces)
	return nil
}
