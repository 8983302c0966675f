package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"mention-relay/project/domain"
)

func TestWorkspaceDoc_ToRecord(t *testing.T) {
	doc := workspaceDoc{
		TeamID:             "TB",
		Name:               "Workspace B",
		TargetUserID:       "UB",
		BotTokenSecretName: "relay-b-bot",
		SigningSecretName:  "relay-b-signing",
	}

	rec := doc.toRecord("workspace_b")
	assert.Equal(t, domain.WorkspaceRecord{
		Key:                "workspace_b",
		TeamID:             "TB",
		Name:               "Workspace B",
		TargetUserID:       "UB",
		BotTokenSecretName: "relay-b-bot",
		SigningSecretName:  "relay-b-signing",
	}, rec)

	doc.WorkspaceID = "explicit"
	assert.Equal(t, "explicit", doc.toRecord("workspace_b").Key)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(status.Error(codes.NotFound, "missing")))
	assert.False(t, isNotFound(status.Error(codes.Unavailable, "down")))
	assert.False(t, isNotFound(fmt.Errorf("plain")))
}

// Firestore エミュレータがある場合のみ実行します
func TestFirestoreRepo_ListWorkspaces(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST が未設定のためスキップします")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	col := fmt.Sprintf("relay_workspaces_test_%d", time.Now().UnixNano())
	repo, err := NewFirestoreRepo(ctx, "relay-test", col)
	require.NoError(t, err)
	defer repo.Close()

	docs := map[string]map[string]any{
		"workspace_b": {"team_id": "TB", "target_user_id": "UB", "bot_token_secret_name": "b-bot"},
		"workspace_c": {"team_id": "TC", "target_user_id": "UC", "bot_token_secret_name": "c-bot", "name": "Workspace C"},
		"workspace_x": {"target_user_id": "UX", "bot_token_secret_name": "x-bot", "disabled": true},
	}
	for id, data := range docs {
		_, err := repo.cli.Collection(col).Doc(id).Set(ctx, data)
		require.NoError(t, err)
	}

	records, err := repo.ListWorkspaces(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "workspace_b", records[0].Key)
	assert.Equal(t, "Workspace C", records[1].Name)
}
