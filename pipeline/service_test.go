package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchRejectsMalformedPayloads(t *testing.T) {
	h := newHarness()
	s := NewService(nil, h.handlers, nil)

	for _, stage := range []string{StageIngest, StageEnrich, StageDiligence, StageMatch} {
		err := s.dispatch(context.Background(), stage, []byte("{not json"))
		require.Error(t, err, stage)
		assert.False(t, IsTerminal(err), stage)
	}
}

func TestDispatchUnknownStage(t *testing.T) {
	h := newHarness()
	s := NewService(nil, h.handlers, nil)

	err := s.dispatch(context.Background(), "REWIND", []byte("{}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown stage")
}

func TestDispatchRoutesToHandler(t *testing.T) {
	h := newHarness()
	seedIngested(t, h, "sub-route")
	s := NewService(nil, h.handlers, nil)

	err := s.dispatch(context.Background(), StageEnrich, []byte(`{"submission_id":"sub-route"}`))
	require.NoError(t, err)
	assert.Len(t, h.publisher.published(SubjectDiligence), 1)
}
