package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkspaceConfig_Validate(t *testing.T) {
	valid := WorkspaceConfig{Key: "workspace_b", SourceToken: "xoxb-b", TargetUserID: "U123"}

	tests := []struct {
		name    string
		mutate  func(*WorkspaceConfig)
		wantErr bool
	}{
		{name: "valid", mutate: func(*WorkspaceConfig) {}},
		{name: "missing key", mutate: func(w *WorkspaceConfig) { w.Key = "" }, wantErr: true},
		{name: "missing token", mutate: func(w *WorkspaceConfig) { w.SourceToken = "" }, wantErr: true},
		{name: "missing target", mutate: func(w *WorkspaceConfig) { w.TargetUserID = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := valid
			tt.mutate(&ws)

			err := ws.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestWorkspaceConfig_DisplayName(t *testing.T) {
	assert.Equal(t, "workspace_b", WorkspaceConfig{Key: "workspace_b"}.DisplayName())
	assert.Equal(t, "Workspace B", WorkspaceConfig{Key: "workspace_b", Name: "Workspace B"}.DisplayName())
}

func TestDestinationConfig_Validate(t *testing.T) {
	assert.NoError(t, DestinationConfig{Token: "xoxb-a", ChannelID: "C1"}.Validate())
	assert.ErrorIs(t, DestinationConfig{ChannelID: "C1"}.Validate(), ErrInvalid)
	assert.ErrorIs(t, DestinationConfig{Token: "xoxb-a"}.Validate(), ErrInvalid)
}

func TestWorkspaceRecord_Validate(t *testing.T) {
	assert.NoError(t, WorkspaceRecord{Key: "b", TargetUserID: "U1", BotTokenSecretName: "s"}.Validate())
	assert.ErrorIs(t, WorkspaceRecord{TargetUserID: "U1", BotTokenSecretName: "s"}.Validate(), ErrInvalid)
	assert.ErrorIs(t, WorkspaceRecord{Key: "b", BotTokenSecretName: "s"}.Validate(), ErrInvalid)
	assert.ErrorIs(t, WorkspaceRecord{Key: "b", TargetUserID: "U1"}.Validate(), ErrInvalid)
}
