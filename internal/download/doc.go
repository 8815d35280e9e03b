package download

// Package download implements the fetch orchestrator: it runs a chosen
// rendition's download+merge in the background, publishes the result into
// the shared downloads directory, hands it to retention and reports the
// outcome through a completion callback.
