package dto

import "github.com/invopop/jsonschema"

// ReportSchema describes the report payload returned by the reports API.
func ReportSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(&ReportResponse{})
}
