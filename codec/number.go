package codec

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// stringify renders a payload value the way it is typed into a form.
func stringify(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case decimal.Decimal:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}

func toDecimal(v interface{}) (decimal.Decimal, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Decimal{}, ErrInvalidNumber
		}
		return decimal.NewFromFloat(x), nil
	case float32:
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return decimal.Decimal{}, ErrInvalidNumber
		}
		return decimal.NewFromFloat32(x), nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case int32:
		return decimal.NewFromInt32(x), nil
	case bool:
		return decimal.Decimal{}, ErrInvalidNumber
	}

	s := strings.TrimSpace(stringify(v))
	if s == "" {
		return decimal.Decimal{}, ErrInvalidNumber
	}
	return decimal.NewFromString(s)
}

// scaleDigits multiplies v by 10^scale, rounds half away from zero and
// renders the integer.
func scaleDigits(v interface{}, scale int) (string, error) {
	d, err := toDecimal(v)
	if err != nil {
		return "", err
	}
	return d.Mul(decimal.New(1, int32(scale))).StringFixed(0), nil
}

// Unscale reverses the decimal shift of a decoded Number or Price value:
// Unscale("12346", 2) is "123.46". Decode never does this itself.
func Unscale(value string, scale int) (string, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return "", ErrInvalidNumber
	}
	if scale <= 0 {
		return d.String(), nil
	}
	return d.Mul(decimal.New(1, int32(-scale))).StringFixed(int32(scale)), nil
}
