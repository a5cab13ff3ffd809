// Package extractors provides implementations of the Extractor interface
// for the upload formats the knowledge base accepts. Each extractor knows
// how to turn the bytes of one family of MIME types into plain UTF-8 text.
//
// Extractors are registered with a Registry at startup. The registry picks
// an extractor by declared MIME type and falls back to the file extension
// when the uploader did not declare a usable type.
package extractors
