// Package models declares entity-kind policy: which collection a kind
// lives in, its schema defaults, how query parameters map to filter
// rules and what never leaves the API. The generic service is
// filter-rule-agnostic; this mapping is per kind.
package models

import (
	"time"

	"userserve/internal/services"
	"userserve/internal/store"
)

// UserKind describes the User document kind: collection "users",
// natural key "userId", ID prefix "USR".
var UserKind = services.Kind{Name: "User", Collection: "users", Prefix: "USR"}

// ApplyUserDefaults fills schema defaults on a new user document
// without overwriting supplied fields.
func ApplyUserDefaults(doc store.Document) store.Document {
	if doc == nil {
		doc = store.Document{}
	}
	if _, ok := doc["role"]; !ok {
		doc["role"] = "user"
	}
	if _, ok := doc["status"]; !ok {
		doc["status"] = "active"
	}
	if _, ok := doc["address"]; !ok {
		doc["address"] = []any{}
	}
	if _, ok := doc["createdAt"]; !ok {
		doc["createdAt"] = time.Now().UTC()
	}
	return doc
}

// SanitizeUser returns a copy of the document without the password
// hash. Hashes are stored, never served.
func SanitizeUser(doc store.Document) store.Document {
	if doc == nil {
		return nil
	}
	out := make(store.Document, len(doc))
	for k, v := range doc {
		if k == "password" {
			continue
		}
		out[k] = v
	}
	return out
}

// SanitizeUsers sanitizes a list of user documents.
func SanitizeUsers(docs []store.Document) []store.Document {
	out := make([]store.Document, len(docs))
	for i, d := range docs {
		out[i] = SanitizeUser(d)
	}
	return out
}

// UserFilter maps optional query parameters to match rules:
// username/email/phone/address filter by case-insensitive substring,
// role/status/userId by exact value. Absent parameters impose no
// constraint.
func UserFilter(params map[string]string) store.Filter {
	filter := store.Filter{}
	for _, field := range []string{"username", "email", "phone", "address"} {
		if v := params[field]; v != "" {
			filter[field] = store.Contains(v)
		}
	}
	for _, field := range []string{"role", "status", "userId"} {
		if v := params[field]; v != "" {
			filter[field] = store.Eq(v)
		}
	}
	return filter
}
