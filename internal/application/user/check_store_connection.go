package user

import (
	"context"
	"fmt"
)

type CheckStoreConnection interface {
	Execute(ctx context.Context) (string, error)
}

type serverVersionReader interface {
	ServerVersion(ctx context.Context) (string, error)
}

type checkStoreConnection struct {
	store serverVersionReader
}

func NewCheckStoreConnection(store serverVersionReader) CheckStoreConnection {
	return &checkStoreConnection{store: store}
}

func (uc *checkStoreConnection) Execute(ctx context.Context) (string, error) {
	version, err := uc.store.ServerVersion(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return version, nil
}
