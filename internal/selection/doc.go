package selection

// Package selection binds a presented choice button to the rendition it
// stands for. Tokens use the wire format "quality:{formatId}:{sourceItemId}";
// decoding recovers exactly the pair that was encoded.
