// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugin

import (
	"bytes"
	"encoding/json"
	"errors"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// SchemaID is the $id of the descriptor schema.
const SchemaID = "https://github.com/mfkl/vlclr/schemas/module.schema.json"

// GenerateSchema reflects the JSON Schema of Descriptor.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{DoNotReference: true}
	schema := r.Reflect(&Descriptor{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "vlclr Module Descriptor"
	schema.Description = "Schema for " + DescriptorFile + " descriptor files"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.In("plugin").Wrapf(err, "failed to marshal schema")
	}
	return data, nil
}

// compiledSchema compiles the generated schema once per process.
var compiledSchema = sync.OnceValues(func() (*jschema.Schema, error) {
	data, err := GenerateSchema()
	if err != nil {
		return nil, err
	}
	doc, err := jschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, oops.In("plugin").Wrapf(err, "failed to parse schema")
	}

	c := jschema.NewCompiler()
	if err := c.AddResource(SchemaID, doc); err != nil {
		return nil, oops.In("plugin").Wrapf(err, "failed to add schema")
	}
	sch, err := c.Compile(SchemaID)
	if err != nil {
		return nil, oops.In("plugin").Wrapf(err, "failed to compile schema")
	}
	return sch, nil
})

// ValidateSchema checks a YAML descriptor against the descriptor schema.
// The document is re-encoded as JSON first so numbers and keys have the
// types the validator expects.
func ValidateSchema(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return invalid("").Errorf("descriptor is empty")
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return invalid("").Wrapf(err, "invalid YAML")
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		return invalid("").Wrapf(err, "descriptor is not representable as JSON")
	}
	inst, err := jschema.UnmarshalJSON(bytes.NewReader(encoded))
	if err != nil {
		return invalid("").Wrapf(err, "descriptor is not representable as JSON")
	}

	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := sch.Validate(inst); err != nil {
		return invalid("").Wrapf(err, "schema validation failed")
	}
	return nil
}

// SchemaErrorDetail returns the validator's report for err, or err's
// message when err did not come from schema validation.
func SchemaErrorDetail(err error) string {
	if err == nil {
		return ""
	}
	var verr *jschema.ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	return err.Error()
}
