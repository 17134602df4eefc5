package migrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tablekit/tablekit/pkg/types"
)

func TestExecute_EmptyPlanTouchesNothing(t *testing.T) {
	// No pool, no introspector: an empty plan must return before either is
	// used.
	e := New(nil, nil, nil)
	assert.NoError(t, e.Execute(context.Background(), types.Plan{Table: "products"}))
}
