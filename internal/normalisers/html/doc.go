// Package html extracts pages from fetched HTML documents.
//
// The extractor derives the title, the main textual content, any embedded
// JSON-LD structured data and the publish/modify timestamps of a page.
// Main content is located with an ordered list of CSS selectors, falling
// back to a readability article extraction and finally the whole body.
package html
