package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/qri-io/jsonschema"
)

const statusEnum = `{"type":"string","enum":["new","reviewed","shortlisted","rejected","hired"]}`

var (
	credentialsSchema = mustSchema(`{
		"type": "object",
		"required": ["username", "password"],
		"properties": {
			"username": {"type": "string", "minLength": 1},
			"password": {"type": "string", "minLength": 1}
		}
	}`)

	registrationSchema = mustSchema(`{
		"type": "object",
		"required": ["username", "password"],
		"properties": {
			"username": {"type": "string", "minLength": 1, "maxLength": 150, "pattern": "^[\\w.@+-]+$"},
			"email": {"type": "string"},
			"password": {"type": "string", "minLength": 1}
		}
	}`)

	jobSchema = mustSchema(`{
		"type": "object",
		"required": ["title", "description", "location"],
		"properties": {
			"title": {"type": "string", "minLength": 1, "maxLength": 200},
			"description": {"type": "string", "minLength": 1},
			"requirements": {"type": "string"},
			"location": {"type": "string", "minLength": 1, "maxLength": 200},
			"salary_range": {"type": "string", "maxLength": 100},
			"is_active": {"type": "boolean"}
		}
	}`)

	statusUpdateSchema = mustSchema(`{
		"type": "object",
		"required": ["status"],
		"properties": {
			"status": ` + statusEnum + `,
			"notes": {"type": "string"}
		}
	}`)

	bulkUpdateSchema = mustSchema(`{
		"type": "object",
		"required": ["applicant_ids", "status"],
		"properties": {
			"applicant_ids": {"type": "array", "items": {"type": "integer"}},
			"status": ` + statusEnum + `,
			"notes": {"type": "string"}
		}
	}`)

	applicantPatchSchema = mustSchema(`{
		"type": "object",
		"properties": {
			"notes": {"type": "string"},
			"status": ` + statusEnum + `
		}
	}`)
)

var errMalformed = errors.New("malformed request body")

const maxJSONBody = 1 << 20

func mustSchema(src string) *jsonschema.Schema {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(src), rs); err != nil {
		panic(fmt.Sprintf("compile schema: %v", err))
	}
	return rs
}

// decodeBody validates the JSON body of r against s and decodes it into out.
// Schema violations come back as per-field messages; a body that is not JSON
// yields errMalformed.
func decodeBody(ctx context.Context, r *http.Request, s *jsonschema.Schema, out any) (map[string][]string, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	keyErrs, err := s.ValidateBytes(ctx, body)
	if err != nil {
		return nil, errMalformed
	}
	if len(keyErrs) > 0 {
		return fieldErrors(keyErrs), nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return nil, errMalformed
	}
	return nil, nil
}

func fieldErrors(keyErrs []jsonschema.KeyError) map[string][]string {
	fields := map[string][]string{}
	for _, ke := range keyErrs {
		field := strings.Trim(ke.PropertyPath, "/")
		if i := strings.Index(field, "/"); i >= 0 {
			field = field[:i]
		}
		msg := ke.Message
		if strings.HasSuffix(msg, "value is required") {
			// "title" value is required
			if name, _, ok := strings.Cut(strings.TrimPrefix(msg, `"`), `"`); ok && field == "" {
				field = name
			}
			msg = "This field is required."
		}
		if field == "" {
			field = "non_field_errors"
		}
		fields[field] = append(fields[field], msg)
	}
	return fields
}

// badBody writes the answer for a decodeBody failure.
func badBody(w http.ResponseWriter, fields map[string][]string, err error) {
	if err != nil {
		if errors.Is(err, errMalformed) {
			writeDetail(w, http.StatusBadRequest, "JSON parse error.")
			return
		}
		internalError(w, "decode body", err)
		return
	}
	writeFields(w, fields)
}
