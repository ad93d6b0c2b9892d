package otm

import (
	"github.com/V4T54L/milestone-notifier/internal/domain"
)

// Attributes is the ordered result of extraction. Names are unique.
type Attributes []domain.Attribute

// Get returns the value extracted for name.
func (a Attributes) Get(name domain.AttributeName) (domain.AttributeValue, bool) {
	for _, attr := range a {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return "", false
}

// merge folds later discoveries into a: known names take the newer value in place,
// new names are appended.
func (a Attributes) merge(later Attributes) Attributes {
	for _, attr := range later {
		replaced := false
		for i := range a {
			if a[i].Name == attr.Name {
				a[i].Value = attr.Value
				replaced = true
				break
			}
		}
		if !replaced {
			a = append(a, attr)
		}
	}
	return a
}

// ExtractAttributes searches record depth-first for tracked milestone keys whose
// value is an object carrying a "value" member. Matches can sit at any depth; a key
// found more than once keeps the last value visited.
func ExtractAttributes(record Value) Attributes {
	var found Attributes

	switch node := record.(type) {
	case Object:
		for _, m := range node.Members {
			if v, ok := trackedValue(m); ok {
				found = found.merge(Attributes{{Name: domain.AttributeName(m.Key), Value: v}})
				continue
			}
			switch m.Value.(type) {
			case Object, Array:
				found = found.merge(ExtractAttributes(m.Value))
			}
		}
	case Array:
		for _, item := range node {
			found = found.merge(ExtractAttributes(item))
		}
	}

	return found
}

func trackedValue(m Member) (domain.AttributeValue, bool) {
	if !domain.IsTracked(m.Key) {
		return "", false
	}
	inner, ok := m.Value.(Object)
	if !ok {
		return "", false
	}
	v, ok := inner.Get("value")
	if !ok {
		return "", false
	}
	return domain.AttributeValue(Text(v)), true
}

// ShipmentIDOf reads shipmentXid, then shipmentId, from the top level of record.
// null counts as absent.
func ShipmentIDOf(record Value) domain.ShipmentID {
	obj, ok := record.(Object)
	if !ok {
		return domain.UnknownShipment
	}
	for _, key := range []string{"shipmentXid", "shipmentId"} {
		v, ok := obj.Get(key)
		if !ok {
			continue
		}
		if _, isNull := v.(Null); isNull {
			continue
		}
		return domain.ShipmentID(Text(v))
	}
	return domain.UnknownShipment
}
