package magento

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// ResponseError is a non-2xx answer from the backend.
type ResponseError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("magento: %s (status %d)", e.Message, e.StatusCode)
}

type errorBody struct {
	Message    string          `json:"message"`
	Parameters json.RawMessage `json:"parameters"`
}

func newResponseError(status int, body []byte) *ResponseError {
	e := &ResponseError{StatusCode: status, Body: body, Message: http.StatusText(status)}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Message != "" {
		e.Message = substitute(eb.Message, eb.Parameters)
	}
	return e
}

// substitute fills Magento placeholders: %1, %2 from a list, %name from an object.
func substitute(msg string, raw json.RawMessage) string {
	if len(raw) == 0 {
		return msg
	}

	var list []any
	if err := json.Unmarshal(raw, &list); err == nil {
		// replace higher indexes first so %1 does not clobber %10
		for i := len(list); i >= 1; i-- {
			msg = strings.ReplaceAll(msg, "%"+strconv.Itoa(i), fmt.Sprint(list[i-1]))
		}
		return msg
	}

	var named map[string]any
	if err := json.Unmarshal(raw, &named); err == nil {
		keys := make([]string, 0, len(named))
		for k := range named {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
		for _, k := range keys {
			msg = strings.ReplaceAll(msg, "%"+k, fmt.Sprint(named[k]))
		}
	}
	return msg
}
