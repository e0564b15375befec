package memory

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"labelforge/internal/lineage/ports"
	"labelforge/internal/lineage/store/storetest"
)

func TestMemoryStore(t *testing.T) {
	suite.Run(t, &storetest.ContractSuite{
		NewStore: func() ports.Store { return New() },
	})
}
