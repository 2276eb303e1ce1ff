// Package pendinginput derives the stable identifiers that correlate
// pending-input records across process restarts and message redeliveries.
package pendinginput

// StableID builds the pending input document ID.
// Format: {source}:{external_id}:{provider}. The same logical activity and
// provider always map to the same record, so concurrent or repeated passes
// converge instead of fanning out.
func StableID(source, externalID, provider string) string {
	return source + ":" + externalID + ":" + provider
}
