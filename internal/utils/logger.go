package utils

import (
	"fmt"
	"log"
	"strings"
)

// LogEvent prints standardized log line with module/action/request_id.
// Avoid logging sensitive payload; message should be summarized.
func LogEvent(requestID, module, action, message string) {
	req := strings.TrimSpace(requestID)
	log.Printf("[%s] action=%s request_id=%s msg=%s", strings.ToUpper(module), action, req, message)
}

// LogFields is LogEvent with key/value pairs rendered as k=v.
func LogFields(requestID, module, action string, kv ...any) {
	LogEvent(requestID, module, action, FormatFields(kv...))
}

// FormatFields renders alternating keys and values; a dangling key gets "?".
func FormatFields(kv ...any) string {
	parts := make([]string, 0, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		if i+1 >= len(kv) {
			parts = append(parts, fmt.Sprintf("%v=?", kv[i]))
			break
		}
		parts = append(parts, fmt.Sprintf("%v=%v", kv[i], kv[i+1]))
	}
	return strings.Join(parts, " ")
}
