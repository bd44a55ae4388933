// JSON Schema shape gate for move payloads (spec §4.2), grounded on
// hellsoul86-voxelcraft.ai's internal/protocol schema-validated message
// envelope. The schema only gates *shape* (known keys, character-index
// key pattern, coarse array bounds); byte-exact semantic rules
// (waypoint parity, consecutive-duplicate rejection) run afterwards in
// parse.go, since JSON Schema cannot express them, and parse.go checks
// the no-leading-zero index rule again when it converts each key.
package move

import (
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const characterIndexPattern = `^(0|[1-9][0-9]*)$`

const spawnSchemaJSON = `{
  "type": "object",
  "properties": { "color": { "type": "integer", "minimum": 0, "maximum": 3 } },
  "required": ["color"],
  "additionalProperties": false
}`

const updateSchemaJSON = `{
  "type": "object",
  "properties": {
    "msg": { "type": "string" },
    "address": { "type": "string" },
    "addressLock": { "type": "string" }
  },
  "patternProperties": {
    "^(0|[1-9][0-9]*)$": {
      "type": "object",
      "properties": {
        "wp": {
          "type": "array",
          "maxItems": 200,
          "items": { "type": "integer" }
        },
        "destruct": { "type": "boolean" }
      },
      "additionalProperties": false
    }
  },
  "additionalProperties": false
}`

var (
	schemaOnce    sync.Once
	spawnSchema   *jsonschema.Schema
	updateSchema  *jsonschema.Schema
	schemaInitErr error
)

func compileSchemas() {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("spawn.json", strings.NewReader(spawnSchemaJSON)); err != nil {
		schemaInitErr = err
		return
	}
	if err := c.AddResource("update.json", strings.NewReader(updateSchemaJSON)); err != nil {
		schemaInitErr = err
		return
	}
	s, err := c.Compile("spawn.json")
	if err != nil {
		schemaInitErr = err
		return
	}
	spawnSchema = s
	u, err := c.Compile("update.json")
	if err != nil {
		schemaInitErr = err
		return
	}
	updateSchema = u
}

func schemas() (*jsonschema.Schema, *jsonschema.Schema, error) {
	schemaOnce.Do(compileSchemas)
	return spawnSchema, updateSchema, schemaInitErr
}
