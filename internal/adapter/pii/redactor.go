package pii

import (
	"github.com/V4T54L/milestone-notifier/internal/adapter/otm"
)

const RedactedPlaceholder = "[REDACTED]"

// Redactor masks sensitive members of OTM payloads before they are logged.
type Redactor struct {
	fieldsToRedact map[string]struct{}
}

// NewRedactor creates a Redactor for the given member names. Blank names are ignored.
func NewRedactor(fields []string) *Redactor {
	fieldSet := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		if field != "" {
			fieldSet[field] = struct{}{}
		}
	}
	return &Redactor{fieldsToRedact: fieldSet}
}

// Redact returns a copy of v where every member named in the redaction set, at any
// depth, has its value replaced by RedactedPlaceholder. v itself is not modified.
func (r *Redactor) Redact(v otm.Value) otm.Value {
	if r == nil || len(r.fieldsToRedact) == 0 {
		return v
	}
	return r.redact(v)
}

func (r *Redactor) redact(v otm.Value) otm.Value {
	switch t := v.(type) {
	case otm.Object:
		members := make([]otm.Member, len(t.Members))
		for i, m := range t.Members {
			if _, ok := r.fieldsToRedact[m.Key]; ok {
				members[i] = otm.Member{Key: m.Key, Value: otm.String(RedactedPlaceholder)}
				continue
			}
			members[i] = otm.Member{Key: m.Key, Value: r.redact(m.Value)}
		}
		return otm.Object{Members: members}
	case otm.Array:
		items := make(otm.Array, len(t))
		for i, item := range t {
			items[i] = r.redact(item)
		}
		return items
	default:
		return v
	}
}
