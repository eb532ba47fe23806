package script

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/snappy-loop/shadowtwin/internal/models"
)

// itemSchema renders the JSON schema of a single array item, inlined without $defs.
func itemSchema[T any]() string {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		Anonymous:                 true,
	}
	var v T
	schema := reflector.Reflect(v)
	schema.Version = ""
	b, err := json.Marshal(schema)
	if err != nil {
		return "{}"
	}
	return string(b)
}

var (
	timelineSchema   = itemSchema[models.TimelineEvent]()
	postSchema       = itemSchema[models.SocialPost]()
	comparisonSchema = itemSchema[models.ComparisonRow]()
)
