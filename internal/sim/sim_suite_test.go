package sim

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

//go:generate mockgen -destination "mock_dynamo_test.go" -package $GOPACKAGE -write_package_comment=false github.com/san-kum/plantsim/internal/dynamo Controller

func TestSim(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Sim Suite")
}
