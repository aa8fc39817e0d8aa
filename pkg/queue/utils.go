package queue

import (
	"fmt"
	"strings"
)

// qualifiedStructName names typed handlers after their payload type, e.g. "billing.Invoice".
func qualifiedStructName(v any) string {
	s := fmt.Sprintf("%T", v)
	s = strings.TrimLeft(s, "*")

	return s
}
