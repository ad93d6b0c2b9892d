package otm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/V4T54L/milestone-notifier/internal/domain"
)

func TestExtractAttributes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Attributes
	}{
		{
			name: "top level",
			in:   `{"attributeDate1": {"value": "2024-01-01"}}`,
			want: Attributes{{Name: domain.AttributeDate1, Value: "2024-01-01"}},
		},
		{
			name: "all four at arbitrary depth",
			in: `{
				"attributeDate2": {"value": "d2"},
				"refs": [{"x": {"attributeDate6": {"value": "d6", "tz": "UTC"}}}],
				"deep": {"a": {"b": [[{"attributeDate7": {"value": "d7"}}]]}},
				"attributeDate1": {"value": "d1"}
			}`,
			want: Attributes{
				{Name: domain.AttributeDate2, Value: "d2"},
				{Name: domain.AttributeDate6, Value: "d6"},
				{Name: domain.AttributeDate7, Value: "d7"},
				{Name: domain.AttributeDate1, Value: "d1"},
			},
		},
		{
			name: "unrecognized keys are ignored even when shaped identically",
			in:   `{"attributeDate3": {"value": "x"}, "attributeDate10": {"value": "y"}, "AttributeDate1": {"value": "z"}}`,
			want: nil,
		},
		{
			name: "tracked key without value member is searched into",
			in:   `{"attributeDate1": {"nested": {"attributeDate2": {"value": "d2"}}}}`,
			want: Attributes{{Name: domain.AttributeDate2, Value: "d2"}},
		},
		{
			name: "tracked key with scalar value is ignored",
			in:   `{"attributeDate1": "2024-01-01", "attributeDate2": null}`,
			want: nil,
		},
		{
			name: "matched object is not searched into",
			in:   `{"attributeDate1": {"value": "outer", "attributeDate2": {"value": "inner"}}}`,
			want: Attributes{{Name: domain.AttributeDate1, Value: "outer"}},
		},
		{
			name: "last visited value wins, first position kept",
			in: `{
				"attributeDate1": {"value": "first"},
				"attributeDate6": {"value": "d6"},
				"later": [{"attributeDate1": {"value": "second"}}]
			}`,
			want: Attributes{
				{Name: domain.AttributeDate1, Value: "second"},
				{Name: domain.AttributeDate6, Value: "d6"},
			},
		},
		{
			name: "non-string values are rendered as text",
			in:   `{"attributeDate1": {"value": 20240101}, "attributeDate2": {"value": null}, "attributeDate6": {"value": {"ts": 1}}}`,
			want: Attributes{
				{Name: domain.AttributeDate1, Value: "20240101"},
				{Name: domain.AttributeDate2, Value: "null"},
				{Name: domain.AttributeDate6, Value: `{"ts":1}`},
			},
		},
		{
			name: "top-level array",
			in:   `[1, "a", {"attributeDate7": {"value": "d7"}}]`,
			want: Attributes{{Name: domain.AttributeDate7, Value: "d7"}},
		},
		{
			name: "nothing found",
			in:   `{"shipmentId": "S1", "attributeNumber7": "1.0"}`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractAttributes(mustDecode(t, tt.in))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractAttributes_DoesNotMutateInput(t *testing.T) {
	in := mustDecode(t, `{"a": [{"attributeDate1": {"value": "x"}}], "attributeDate1": {"value": "y"}}`)
	before := Text(in)

	first := ExtractAttributes(in)
	second := ExtractAttributes(in)

	assert.Equal(t, before, Text(in))
	assert.Equal(t, first, second)
}

func TestAttributes_Get(t *testing.T) {
	attrs := Attributes{{Name: domain.AttributeDate6, Value: "d6"}}

	v, ok := attrs.Get(domain.AttributeDate6)
	assert.True(t, ok)
	assert.Equal(t, domain.AttributeValue("d6"), v)

	_, ok = attrs.Get(domain.AttributeDate1)
	assert.False(t, ok)
}

func TestShipmentIDOf(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want domain.ShipmentID
	}{
		{"xid preferred", `{"shipmentId": "ID", "shipmentXid": "XID"}`, "XID"},
		{"falls back to id", `{"shipmentId": "ID"}`, "ID"},
		{"numeric id", `{"shipmentId": 12345}`, "12345"},
		{"null xid falls back", `{"shipmentXid": null, "shipmentId": "ID"}`, "ID"},
		{"absent", `{"other": 1}`, domain.UnknownShipment},
		{"not an object", `[{"shipmentId": "ID"}]`, domain.UnknownShipment},
		{"nested ids are not used", `{"inner": {"shipmentId": "ID"}}`, domain.UnknownShipment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShipmentIDOf(mustDecode(t, tt.in)))
		})
	}
}
