package store

import (
	"encoding/json"
	"strings"
)

// placeholderList returns "?,?,?" for n placeholders.
func placeholderList(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// int64sToArgs converts []int64 to []any for use with database/sql.
func int64sToArgs(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// marshalLabels converts labels to JSON text for storage.
func marshalLabels(labels []Label) string {
	if len(labels) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(labels)
	return string(b)
}

// unmarshalLabels converts JSON text back to labels.
func unmarshalLabels(s string) []Label {
	if s == "" || s == "null" || s == "[]" {
		return nil
	}
	var labels []Label
	_ = json.Unmarshal([]byte(s), &labels)
	return labels
}
