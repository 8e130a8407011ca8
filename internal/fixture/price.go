package fixture

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"
	"gopkg.in/yaml.v3"
)

// Price is a non-negative decimal amount.
type Price struct {
	d apd.Decimal
}

// ParsePrice parses a decimal string such as "29.99".
func ParsePrice(s string) (Price, error) {
	var p Price
	if err := p.set(s); err != nil {
		return Price{}, err
	}
	return p, nil
}

// MustPrice is ParsePrice for literals.
func MustPrice(s string) Price {
	p, err := ParsePrice(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Price) set(s string) error {
	s = strings.TrimSpace(s)
	if _, _, err := p.d.SetString(s); err != nil {
		return fmt.Errorf("price %q: %w", s, err)
	}
	if p.d.Sign() < 0 {
		return fmt.Errorf("price %q: must not be negative", s)
	}
	return nil
}

// Cmp compares prices numerically: -1, 0 or +1.
func (p Price) Cmp(q Price) int { return p.d.Cmp(&q.d) }

// Decimal returns a copy of the underlying decimal.
func (p Price) Decimal() *apd.Decimal {
	var d apd.Decimal
	d.Set(&p.d)
	return &d
}

func (p Price) String() string { return p.d.Text('f') }

func (p *Price) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: price must be a scalar", n.Line)
	}
	return p.set(n.Value)
}

func (p *Price) UnmarshalJSON(b []byte) error {
	return p.set(strings.Trim(string(b), `"`))
}

func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(p.String()), nil
}
