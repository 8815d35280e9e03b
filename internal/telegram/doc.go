package telegram

// Package telegram adapts the Telegram Bot API to the flow controller. It
// converts updates into flow events, consumes them on a single goroutine in
// arrival order (long polling or webhook) and implements the controller's
// outbound gateway.
