package amqp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Harsh-BH/certqueue/internal/domain"
)

const taskSchemaURL = "task.schema.json"

const taskSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["job_id", "kind"],
  "properties": {
    "job_id":      {"type": "integer", "minimum": 1},
    "kind":        {"enum": ["certificates", "labels"]},
    "enqueued_at": {"type": "string", "format": "date-time"}
  }
}`

// TaskDecoder validates queue message bodies against the task contract.
type TaskDecoder struct {
	schema *jsonschema.Schema
}

// NewTaskDecoder compiles the task schema.
func NewTaskDecoder() (*TaskDecoder, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(taskSchemaURL, strings.NewReader(taskSchema)); err != nil {
		return nil, fmt.Errorf("add task schema: %w", err)
	}
	schema, err := compiler.Compile(taskSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile task schema: %w", err)
	}
	return &TaskDecoder{schema: schema}, nil
}

// Decode validates body and unmarshals it into a Task.
func (d *TaskDecoder) Decode(body []byte) (*domain.Task, error) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}
	if err := d.schema.Validate(v); err != nil {
		return nil, fmt.Errorf("task does not match schema: %w", err)
	}

	var task domain.Task
	if err := json.Unmarshal(body, &task); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}
	return &task, nil
}
