// Package fetcher downloads a single image over HTTP and stores it on disk.
//
// The Fetcher performs one streamed GET per call with a fixed timeout and a
// browser-like User-Agent. It never retries: a failure is reported once as a
// *StatusError (the server answered with something other than 200) or a
// *TransportError (no usable response), and the caller decides what to do.
//
// Bodies are written to a temporary file in the destination directory and
// renamed into place only after the copy succeeded, so a failed download
// never leaves a partial image that a later run would mistake for a cached
// copy.
package fetcher
