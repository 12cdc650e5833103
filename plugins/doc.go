// Package plugins provides htmd plugins for common conversion needs: CSS
// selector filtering, YAML frontmatter, readability scoring, and heading
// outlines.
//
// Plugin values hold per-conversion state; construct one per conversion.
package plugins
