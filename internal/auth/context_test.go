package auth

import (
	"context"
	"testing"

	"github.com/postbox/postbox/internal/model"
)

func TestCallerFromContext(t *testing.T) {
	t.Parallel()

	if CallerFromContext(context.Background()) != nil {
		t.Error("expected nil caller on empty context")
	}
	if UserIDFromContext(context.Background()) != "" {
		t.Error("expected empty user ID on empty context")
	}

	caller := &model.Caller{UserID: "u1", SessionID: "s1"}
	ctx := ContextWithCaller(context.Background(), caller)

	if got := CallerFromContext(ctx); got != caller {
		t.Errorf("CallerFromContext = %+v, want %+v", got, caller)
	}
	if got := UserIDFromContext(ctx); got != "u1" {
		t.Errorf("UserIDFromContext = %q, want u1", got)
	}
}
