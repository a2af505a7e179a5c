// Package schemas embeds the JSON Schema definitions for every
// LLM-produced artifact so model output can be validated before it
// enters the pipeline.
package schemas

import _ "embed"

//go:embed storyboard.schema.json
var Storyboard string

//go:embed refined_prompts.schema.json
var RefinedPrompts string

//go:embed review.schema.json
var Review string
