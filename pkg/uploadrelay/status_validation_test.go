package uploadrelay

import (
	"errors"
	"testing"
)

func TestCanMarkUploaded(t *testing.T) {
	tests := []struct {
		name      string
		status    FileStatus
		wantApply bool
		wantError error
	}{
		{
			name:      "apply: uploading",
			status:    FileStatusUploading,
			wantApply: true,
		},
		{
			name:      "apply: uploaded retry refreshes",
			status:    FileStatusUploaded,
			wantApply: true,
		},
		{
			name:      "no-op: failed stays failed",
			status:    FileStatusFailed,
			wantApply: false,
		},
		{
			name:      "no-op: deletion pending",
			status:    FileStatusDeletionPending,
			wantApply: false,
		},
		{
			name:      "error: unknown status",
			status:    FileStatus("garbage"),
			wantApply: false,
			wantError: ErrInvalidFileStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apply, err := canMarkUploaded(tt.status)
			if apply != tt.wantApply {
				t.Errorf("canMarkUploaded(%q) apply = %v, want %v", tt.status, apply, tt.wantApply)
			}
			if tt.wantError != nil && !errors.Is(err, tt.wantError) {
				t.Errorf("canMarkUploaded(%q) error = %v, want error wrapping %v", tt.status, err, tt.wantError)
			}
			if tt.wantError == nil && err != nil {
				t.Errorf("canMarkUploaded(%q) error = %v, want nil", tt.status, err)
			}
		})
	}
}

func TestCanMarkFailed(t *testing.T) {
	tests := []struct {
		name      string
		status    FileStatus
		wantApply bool
		wantError error
	}{
		{
			name:      "apply: uploading",
			status:    FileStatusUploading,
			wantApply: true,
		},
		{
			name:      "no-op: uploaded never regresses",
			status:    FileStatusUploaded,
			wantApply: false,
		},
		{
			name:      "no-op: failed stays failed",
			status:    FileStatusFailed,
			wantApply: false,
		},
		{
			name:      "no-op: deletion pending",
			status:    FileStatusDeletionPending,
			wantApply: false,
		},
		{
			name:      "error: unknown status",
			status:    FileStatus("garbage"),
			wantApply: false,
			wantError: ErrInvalidFileStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apply, err := canMarkFailed(tt.status)
			if apply != tt.wantApply {
				t.Errorf("canMarkFailed(%q) apply = %v, want %v", tt.status, apply, tt.wantApply)
			}
			if tt.wantError != nil && !errors.Is(err, tt.wantError) {
				t.Errorf("canMarkFailed(%q) error = %v, want error wrapping %v", tt.status, err, tt.wantError)
			}
			if tt.wantError == nil && err != nil {
				t.Errorf("canMarkFailed(%q) error = %v, want nil", tt.status, err)
			}
		})
	}
}

func TestCanServeFile(t *testing.T) {
	tests := []struct {
		name      string
		status    FileStatus
		wantOK    bool
		wantError error
	}{
		{
			name:   "allow: uploaded",
			status: FileStatusUploaded,
			wantOK: true,
		},
		{
			name:      "deny: uploading",
			status:    FileStatusUploading,
			wantError: ErrFileNotReady,
		},
		{
			name:      "deny: failed",
			status:    FileStatusFailed,
			wantError: ErrFileNotReady,
		},
		{
			name:      "deny: deletion pending",
			status:    FileStatusDeletionPending,
			wantError: ErrFileNotReady,
		},
		{
			name:      "deny: unknown status",
			status:    FileStatus("garbage"),
			wantError: ErrInvalidFileStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := canServeFile(tt.status)
			if ok != tt.wantOK {
				t.Errorf("canServeFile(%q) ok = %v, want %v", tt.status, ok, tt.wantOK)
			}
			if tt.wantError != nil && !errors.Is(err, tt.wantError) {
				t.Errorf("canServeFile(%q) error = %v, want error wrapping %v", tt.status, err, tt.wantError)
			}
		})
	}
}
