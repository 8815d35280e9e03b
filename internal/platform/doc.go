package platform

// Package platform contains OS and external tooling glue: filesystem
// helpers for the shared downloads directory, the yt-dlp backed media
// resolver, playlist expansion, and the ffmpeg availability probe.
