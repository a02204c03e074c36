// Package skills reads skill bundles from the skill storage directory.
//
// A skill is a directory holding a SKILL.md file whose YAML front matter
// carries its name and description:
//
//	---
//	name: pdf
//	description: Extract text and tables from PDF files
//	---
//	<instructions>
//
// Skills are scoped per owner under <root>/<owner>/<skill>. The empty
// owner addresses skills placed directly under <root>.
package skills
