package retention

// Package retention deletes published artifacts once their retention window
// elapses. Every artifact gets its own one-shot timer; deletion is best
// effort and failures are only logged.
