package flow

// Package flow implements the per-link session state machine. A session starts
// when a link arrives, presents the renditions offered by the catalog, binds
// the pressed button to exactly one rendition and hands it to the fetch
// orchestrator. The completion callback delivers the link or a failure notice
// and the session is dropped.
