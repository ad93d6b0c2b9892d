package otm

// Locate unwraps the canonical shipment record from an OTM envelope. The first
// matching shape wins:
//
//	{"transactions": {"items": [{"body": <record>}, ...]}}
//	{"body": <record>}
//	<record>
//
// Unknown shapes are returned unchanged so extraction can still search them.
func Locate(envelope Value) Value {
	obj, ok := envelope.(Object)
	if !ok {
		return envelope
	}

	if body, ok := firstTransactionBody(obj); ok {
		return body
	}
	if body, ok := obj.Get("body"); ok {
		return body
	}
	return envelope
}

func firstTransactionBody(envelope Object) (Value, bool) {
	tx, ok := envelope.Get("transactions")
	if !ok {
		return nil, false
	}
	txObj, ok := tx.(Object)
	if !ok {
		return nil, false
	}
	items, ok := txObj.Get("items")
	if !ok {
		return nil, false
	}
	arr, ok := items.(Array)
	if !ok || len(arr) == 0 {
		return nil, false
	}
	first, ok := arr[0].(Object)
	if !ok {
		return nil, false
	}
	return first.Get("body")
}
