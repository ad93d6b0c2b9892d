package usecase

import (
	"strings"

	"github.com/V4T54L/milestone-notifier/internal/domain"
)

const valuePlaceholder = "{value}"

var messageTemplates = map[domain.AttributeName]string{
	domain.AttributeDate1: "Dear Customer, CUSTOMER ACTUAL ARRIVAL at {value}",
	domain.AttributeDate2: "Dear Customer, CUSTOMER ACTUAL DEPARTURE at {value}",
	domain.AttributeDate6: "Dear Customer, ACTUAL LOADING DATE at {value}",
	domain.AttributeDate7: "Dear Customer, ACTUAL DISCHARGING DATE at {value}",
}

// FormatMessage renders the customer message for an attribute value. Attributes
// without a template get "<attr> updated <value>".
func FormatMessage(attr domain.AttributeName, value domain.AttributeValue) string {
	tmpl, ok := messageTemplates[attr]
	if !ok {
		return string(attr) + " updated " + string(value)
	}
	return strings.ReplaceAll(tmpl, valuePlaceholder, string(value))
}
