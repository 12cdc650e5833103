// Package htmd converts HTML into GitHub flavored Markdown incrementally,
// over a stream of arbitrarily split chunks, without building a DOM.
//
// Conversion is driven by a table of tag Handlers, and may be extended by
// Plugins hooking into the lifecycle of every node. See Convert for whole
// documents, and ConvertStream or Converter for streams.
package htmd
