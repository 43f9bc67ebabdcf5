package api

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/qri-io/jsonschema"
)

//go:embed schemas/job.json
var jobSchemaJSON []byte

// jobSchema checks the shape of create and update bodies. Business rules
// (quantities, references) are left to the allocation validator.
var jobSchema = mustSchema(jobSchemaJSON)

func mustSchema(b []byte) *jsonschema.Schema {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal(b, rs); err != nil {
		panic(fmt.Sprintf("compile embedded schema: %v", err))
	}
	return rs
}

// checkShape returns the schema problems found in body, if any.
func checkShape(ctx context.Context, schema *jsonschema.Schema, body []byte) ([]fieldProblem, error) {
	verrs, err := schema.ValidateBytes(ctx, body)
	if err != nil {
		return nil, err
	}
	problems := make([]fieldProblem, 0, len(verrs))
	for _, v := range verrs {
		problems = append(problems, fieldProblem{Field: v.PropertyPath, Message: v.Message})
	}
	return problems, nil
}
