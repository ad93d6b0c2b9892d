package otm

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/V4T54L/milestone-notifier/internal/domain"
)

const (
	// PhoneField is the record member carrying the customer phone number.
	PhoneField = "attributeNumber7"
	// ChannelPrefix routes the destination to WhatsApp.
	ChannelPrefix = "whatsapp:"
	// DefaultCountryCode is prepended to every normalized number.
	DefaultCountryCode = "+20"
)

// PhoneOf reads PhoneField from the top level of record and normalizes it.
func PhoneOf(record Value, countryCode string) (domain.PhoneDestination, error) {
	obj, ok := record.(Object)
	if !ok {
		return "", domain.ErrMissingPhone
	}
	raw, ok := obj.Get(PhoneField)
	if !ok {
		return "", domain.ErrMissingPhone
	}
	if _, isNull := raw.(Null); isNull {
		return "", domain.ErrMissingPhone
	}
	return NormalizePhone(raw, countryCode)
}

// NormalizePhone recovers a digit string from a numeric-looking value ("201234567.0"
// or 201234567.0), then prefixes the country code and channel. The country code is
// added even when the digits already start with it.
func NormalizePhone(raw Value, countryCode string) (domain.PhoneDestination, error) {
	digits, err := phoneDigits(raw)
	if err != nil {
		return "", err
	}
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	return domain.PhoneDestination(ChannelPrefix + countryCode + digits), nil
}

func phoneDigits(raw Value) (string, error) {
	var text string
	switch v := raw.(type) {
	case Number:
		text = string(v)
	case String:
		text = strings.TrimSpace(string(v))
	default:
		return "", fmt.Errorf("%w: unsupported type %T", domain.ErrInvalidPhoneFormat, raw)
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidPhoneFormat, text)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f <= math.MinInt64 {
		return "", fmt.Errorf("%w: %q out of range", domain.ErrInvalidPhoneFormat, text)
	}
	return strconv.FormatInt(int64(f), 10), nil
}
