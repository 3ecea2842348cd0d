package comparer

import (
	"encoding/json"
	"reflect"

	"github.com/google/go-cmp/cmp"
)

// JSONRawMessage compara json.RawMessage semanticamente: ordem de chaves e espaços não
// importam, e "null" equivale a ausente.
func JSONRawMessage() cmp.Option {
	return cmp.Comparer(func(x, y json.RawMessage) bool {
		xObj, xOK := decodeJSON(x)
		yObj, yOK := decodeJSON(y)
		if !xOK || !yOK {
			return false
		}

		return reflect.DeepEqual(xObj, yObj)
	})
}

func decodeJSON(raw json.RawMessage) (interface{}, bool) {
	if len(raw) == 0 {
		return nil, true
	}

	var obj interface{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	return obj, true
}
