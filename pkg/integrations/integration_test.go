package integrations_test

import (
	"testing"

	"github.com/beam-cloud/onleads/pkg/integrations"
	"github.com/beam-cloud/onleads/pkg/integrations/memory"
	"github.com/beam-cloud/onleads/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := integrations.NewRegistry()

	_, err := r.Get(types.RecordKindLead)
	assert.Error(t, err)

	leads := memory.New(types.RecordKindLead)
	emails := memory.New(types.RecordKindEmail)
	r.Register(emails)
	r.Register(leads)

	got, err := r.Get(types.RecordKindLead)
	require.NoError(t, err)
	assert.Same(t, leads, got)
	assert.Equal(t, []types.RecordKind{types.RecordKindEmail, types.RecordKindLead}, r.Kinds())
}
