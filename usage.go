package edabot

// Usage tracks token consumption.
//
// InputTokens counts non-cached input tokens; cache reads and writes are
// reported separately. Providers normalize their API-specific fields to this
// shape and clamp derived values to zero.
type Usage struct {
	InputTokens      int
	OutputTokens     int
	CacheReadTokens  int
	CacheWriteTokens int
}
