package service

import (
	"fmt"

	"mention-relay/project/domain"
)

// Registry はワークスペース設定の読み取り専用テーブルです
// 構築後は変更されないため、複数の goroutine から同時に参照できます
type Registry struct {
	byKey    map[string]Workspace
	byTeamID map[string]string // TeamID -> Key
	keys     []string
}

// NewRegistry はワークスペース一覧から Registry を構築します
// Key または TeamID が重複している場合は domain.ErrConfiguration を返します
func NewRegistry(workspaces []Workspace) (*Registry, error) {
	reg := &Registry{
		byKey:    make(map[string]Workspace, len(workspaces)),
		byTeamID: make(map[string]string, len(workspaces)),
	}

	for _, ws := range workspaces {
		if err := ws.Config.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
		}
		if ws.Resolver == nil {
			return nil, fmt.Errorf("%w: Resolverが未設定です (workspace=%s)", domain.ErrConfiguration, ws.Config.Key)
		}

		key := ws.Config.Key
		if _, dup := reg.byKey[key]; dup {
			return nil, fmt.Errorf("%w: ワークスペースが重複しています (workspace=%s)", domain.ErrConfiguration, key)
		}
		reg.byKey[key] = ws
		reg.keys = append(reg.keys, key)

		if teamID := ws.Config.TeamID; teamID != "" {
			if other, dup := reg.byTeamID[teamID]; dup {
				return nil, fmt.Errorf("%w: TeamIDが重複しています (team=%s, workspace=%s,%s)", domain.ErrConfiguration, teamID, other, key)
			}
			reg.byTeamID[teamID] = key
		}
	}

	return reg, nil
}

// Lookup は Key または TeamID からワークスペースを取得します
func (r *Registry) Lookup(workspaceID string) (Workspace, bool) {
	if r == nil || workspaceID == "" {
		return Workspace{}, false
	}
	if ws, ok := r.byKey[workspaceID]; ok {
		return ws, true
	}
	if key, ok := r.byTeamID[workspaceID]; ok {
		return r.byKey[key], true
	}
	return Workspace{}, false
}

// Keys は登録順のワークスペース Key 一覧を返します
func (r *Registry) Keys() []string {
	keys := make([]string, len(r.keys))
	copy(keys, r.keys)
	return keys
}

// Len は登録されているワークスペース数を返します
func (r *Registry) Len() int {
	return len(r.keys)
}
