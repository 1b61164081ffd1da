// Package file keeps the site configuration and the answer prompts as
// plain files under ~/.sercha-site, so operators can edit them by hand.
package file
