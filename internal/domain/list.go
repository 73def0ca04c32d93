package domain

import (
	"encoding/json"
	"strings"
)

// StringList decodes from either a JSON array or a comma/newline separated
// string, the two shapes admin forms and feed imports send.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler
func (l *StringList) UnmarshalJSON(data []byte) error {
	var arr []interface{}
	if err := json.Unmarshal(data, &arr); err == nil {
		out := make([]string, 0, len(arr))
		for _, v := range arr {
			switch x := v.(type) {
			case string:
				out = append(out, x)
			case nil:
			default:
				b, _ := json.Marshal(x)
				out = append(out, string(b))
			}
		}
		*l = CleanList(out)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*l = CleanList(strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '\n'
	}))
	return nil
}
