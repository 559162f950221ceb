package models

// All lists every model owned by the schema, in migration order.
func All() []any {
	return []any{&User{}, &Session{}, &Pick{}, &SiteImages{}, &Upload{}, &ContactMessage{}}
}
