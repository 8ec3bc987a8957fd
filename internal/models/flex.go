package models

import (
	"encoding/json"
	"fmt"
)

// FlexString accepts either a JSON string or a JSON number. The backend sends
// phone numbers as numbers while drafts carry them as typed text.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		if n == float64(int64(n)) {
			*f = FlexString(fmt.Sprintf("%d", int64(n)))
		} else {
			*f = FlexString(fmt.Sprintf("%g", n))
		}
		return nil
	}

	return fmt.Errorf("contact phone: unsupported JSON value %s", string(data))
}

func (f FlexString) String() string {
	return string(f)
}
