package ichor

import gojson "github.com/goccy/go-json"

// jsonMarshal is the single seam through which this package encodes
// values to JSON, backed by goccy/go-json for its lower allocation
// overhead relative to encoding/json -- used for Properties.MarshalJSON
// and Kernel.DebugSnapshot.
func jsonMarshal(v any) ([]byte, error) {
	return gojson.Marshal(v)
}
