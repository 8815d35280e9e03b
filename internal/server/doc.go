package server

// Package server is the artifact host: an HTTP server that exposes the
// downloads directory read-only under /downloads/{name}, a liveness page and
// the optional Telegram webhook endpoint.
