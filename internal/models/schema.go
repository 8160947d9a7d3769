package models

// SchemaVersion is bumped whenever a table changes shape. A store built for a
// different version is recreated empty.
const SchemaVersion = 1

// All lists every persisted model in creation order.
func All() []any {
	return []any{&User{}, &Post{}, &CarDetails{}}
}
