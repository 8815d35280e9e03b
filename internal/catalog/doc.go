package catalog

// Package catalog turns a source URL into the ranked list of renditions a
// user can choose from. It asks the media resolver for metadata only, keeps
// video-only formats in the target container with a known size, keeps the
// first format seen for each height and orders the result tallest first.
