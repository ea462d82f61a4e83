package studies

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentstation/scansync"
	"github.com/agentstation/scansync/internal/cmd/application"
	"github.com/agentstation/scansync/pkg/errors"
)

func TestStudiesCommandPropagatesClientError(t *testing.T) {
	mock := &application.Mock{
		OutputFormatFunc: func() string { return "json" },
		ClientFunc: func(context.Context) (scansync.Client, error) {
			return nil, errors.NewConfigError("backend", "unknown backend", nil)
		},
	}

	cmd := NewCommand(mock)
	cmd.SetArgs([]string{})
	err := cmd.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, "unknown backend")
}

func TestStudiesCommandRejectsBadFormat(t *testing.T) {
	called := false
	mock := &application.Mock{
		OutputFormatFunc: func() string { return "xml" },
		ClientFunc: func(context.Context) (scansync.Client, error) {
			called = true
			return nil, nil
		},
	}

	cmd := NewCommand(mock)
	cmd.SetArgs([]string{})
	assert.Error(t, cmd.ExecuteContext(context.Background()))
	assert.False(t, called)
}
