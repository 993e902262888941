package api

import (
	"context"
	"errors"
	"testing"
)

func chainLookup(parents map[int64]int64) managerOf {
	return func(_ context.Context, id int64) (*int64, error) {
		if id > 1000 {
			return nil, ErrUserNotFound
		}
		p, ok := parents[id]
		if !ok {
			return nil, nil
		}
		return &p, nil
	}
}

func TestCheckManagerChain(t *testing.T) {
	// 1 is the root; 2 reports to 1; 3 reports to 2; 4 reports to 3.
	tree := map[int64]int64{2: 1, 3: 2, 4: 3}

	deep := map[int64]int64{}
	for i := int64(2); i <= 100; i++ {
		deep[i] = i - 1
	}

	tests := []struct {
		name    string
		parents map[int64]int64
		user    int64
		manager int64
		wantErr error
	}{
		{name: "self", parents: tree, user: 2, manager: 2, wantErr: ErrManagerCycle},
		{name: "attach leaf under root", parents: tree, user: 5, manager: 1},
		{name: "move within tree", parents: tree, user: 4, manager: 1},
		{name: "direct cycle", parents: tree, user: 2, manager: 3, wantErr: ErrManagerCycle},
		{name: "indirect cycle", parents: tree, user: 1, manager: 4, wantErr: ErrManagerCycle},
		{name: "unknown manager", parents: tree, user: 2, manager: 2000, wantErr: ErrUserNotFound},
		{name: "too deep", parents: deep, user: 500, manager: 100, wantErr: ErrHierarchyTooDeep},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkManagerChain(context.Background(), tt.user, tt.manager, chainLookup(tt.parents))
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("checkManagerChain() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("checkManagerChain() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
