package api

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/01phanto/EcoLedger/pkg/contracts"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const schemaBaseURL = "https://ecoledger.dev/schemas/"

// Request body schemas, by file name without extension.
const (
	schemaVerificationInput = "verification_input"
	schemaIssue             = "issue"
	schemaIssueVerified     = "issue_verified"
	schemaTransfer          = "transfer"
	schemaCO2               = "co2"
	schemaPlantation        = "plantation"
	schemaBatch             = "batch"
)

type schemaSet map[string]*jsonschema.Schema

func loadSchemas() (schemaSet, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020

	files, err := fs.Glob(schemaFS, "schemas/*.json")
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		data, err := schemaFS.ReadFile(f)
		if err != nil {
			return nil, err
		}
		if err := c.AddResource(schemaBaseURL+path.Base(f), bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("schema load failed for %s: %w", f, err)
		}
	}

	set := make(schemaSet, len(files))
	for _, f := range files {
		name := strings.TrimSuffix(path.Base(f), ".json")
		compiled, err := c.Compile(schemaBaseURL + path.Base(f))
		if err != nil {
			return nil, fmt.Errorf("schema compile failed for %s: %w", name, err)
		}
		set[name] = compiled
	}
	return set, nil
}

// validate checks body against the named schema. Failures come back as
// *contracts.ValidationError naming the first offending field.
func (s schemaSet) validate(name string, body []byte) error {
	schema, ok := s[name]
	if !ok {
		return fmt.Errorf("api: unknown schema %q", name)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return contracts.Invalid("body", "malformed JSON: %v", err)
	}

	err := schema.Validate(doc)
	var ve *jsonschema.ValidationError
	if errors.As(err, &ve) {
		leaf := ve
		for len(leaf.Causes) > 0 {
			leaf = leaf.Causes[0]
		}
		field := strings.TrimPrefix(leaf.InstanceLocation, "/")
		if field == "" {
			field = "body"
		}
		return contracts.Invalid(strings.ReplaceAll(field, "/", "."), "%s", leaf.Message)
	}
	return err
}
