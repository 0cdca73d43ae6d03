package amqp

import (
	"testing"

	"github.com/Harsh-BH/certqueue/internal/domain"
)

func TestTaskDecoder(t *testing.T) {
	decoder, err := NewTaskDecoder()
	if err != nil {
		t.Fatalf("NewTaskDecoder: %v", err)
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
		wantID  int64
	}{
		{"valid", `{"job_id": 7, "kind": "certificates", "enqueued_at": "2024-05-01T10:00:00Z"}`, false, 7},
		{"valid without timestamp", `{"job_id": 3, "kind": "labels"}`, false, 3},
		{"not json", `{{`, true, 0},
		{"missing job id", `{"kind": "labels"}`, true, 0},
		{"zero job id", `{"job_id": 0, "kind": "labels"}`, true, 0},
		{"fractional job id", `{"job_id": 1.5, "kind": "labels"}`, true, 0},
		{"unknown kind", `{"job_id": 1, "kind": "invoices"}`, true, 0},
		{"bad timestamp", `{"job_id": 1, "kind": "labels", "enqueued_at": "yesterday"}`, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := decoder.Decode([]byte(tt.body))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got task %+v", task)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if task.JobID != tt.wantID {
				t.Errorf("expected job_id %d, got %d", tt.wantID, task.JobID)
			}
			if !task.Kind.IsValid() {
				t.Errorf("expected valid kind, got %q", task.Kind)
			}
		})
	}
}

func TestTaskDecoder_KindRoundTrip(t *testing.T) {
	decoder, err := NewTaskDecoder()
	if err != nil {
		t.Fatalf("NewTaskDecoder: %v", err)
	}
	task, err := decoder.Decode([]byte(`{"job_id": 12, "kind": "labels"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if task.Kind != domain.KindLabels {
		t.Errorf("expected labels, got %s", task.Kind)
	}
}
