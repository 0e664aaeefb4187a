package policy

import (
	"testing"

	"taskhub/internal/apperr"
	"taskhub/internal/model"
)

func TestCanAccess(t *testing.T) {
	alice := &model.User{ID: 1}
	bob := &model.User{ID: 2}
	task := &model.Task{ID: 10, UserID: 1}
	project := &model.Project{ID: 20, UserID: 2}

	tests := []struct {
		name      string
		resource  Owned
		principal *model.User
		want      bool
	}{
		{"owner task", task, alice, true},
		{"other task", task, bob, false},
		{"owner project", project, bob, true},
		{"other project", project, alice, false},
		{"no principal", task, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAccess(tt.resource, tt.principal); got != tt.want {
				t.Fatalf("CanAccess() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthorize(t *testing.T) {
	task := &model.Task{ID: 10, UserID: 1}

	if err := Authorize(&model.User{ID: 1}, task, "update", "task"); err != nil {
		t.Fatalf("expected owner allowed, got %v", err)
	}

	err := Authorize(&model.User{ID: 2}, task, "delete", "task")
	e, ok := apperr.As(err)
	if !ok || e.Kind != apperr.KindForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if e.Message != "Unauthorized to delete this task." {
		t.Fatalf("unexpected message %q", e.Message)
	}

	if kind := apperr.KindOf(Authorize(nil, task, "view", "task")); kind != apperr.KindUnauthenticated {
		t.Fatalf("expected unauthenticated, got %v", kind)
	}
	if kind := apperr.KindOf(RequirePrincipal(nil)); kind != apperr.KindUnauthenticated {
		t.Fatalf("expected unauthenticated, got %v", kind)
	}
}
