// Package frontmatter parses and serializes Hexo content documents.
//
// A document is a YAML metadata block between two "---" delimiter lines,
// followed by a blank line and the markdown body:
//
//	---
//	title: Hello
//	date: 2024-01-01
//	tags:
//	  - a
//	---
//
//	Body text.
//
// Recognized keys are decoded into [Frontmatter] fields. Every other top-level
// key is kept in [Frontmatter.Custom] in the order it appeared, with nested
// sequences and mappings preserved, so unknown metadata survives a
// [Parse]/[Serialize] round trip.
//
// # Errors
//
// Failures are reported with sentinel errors that can be checked with
// errors.Is:
//
//   - [ErrNotFrontmatter]: the document does not start with a delimiter line
//   - [ErrMalformedFrontmatter]: the closing delimiter line is missing
//   - [ErrInvalidMetadata]: the metadata block is not valid for a Hexo document
//
// The closing delimiter is the first "---" line after the opening one. A YAML
// block that itself contains a bare "---" line is split there and will not
// parse as intended.
package frontmatter
