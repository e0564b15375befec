//go:build integration

package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"labelforge/internal/lineage/ports"
	"labelforge/internal/lineage/store/storetest"
	"labelforge/pkg/testutil/containers"
)

func TestRedisStore(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()

	suite.Run(t, &storetest.ContractSuite{
		NewStore: func() ports.Store {
			require.NoError(t, rc.FlushAll(ctx))
			return New(rc.Client, WithPrefix("test:lineage:"))
		},
	})
}
