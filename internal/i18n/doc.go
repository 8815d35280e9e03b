package i18n

// Package i18n holds the user-facing bot texts. English is complete; other
// languages may cover a subset and fall back to English per key.
