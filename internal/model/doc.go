package model

// Package model defines domain data structures shared across the bot: source
// items and their renditions, selection tokens, fetch jobs, published
// artifacts and playlists. Structures carry explicit status enums so each
// component can reason about state transitions without reaching into another.
