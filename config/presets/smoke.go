package presets

import (
	"time"

	"github.com/spacemeshos/go-arenatree/config"
)

func init() {
	register("smoke", smoke())
}

// smoke is a short run that still grows, clones and collapses the chain.
func smoke() config.Config {
	conf := config.DefaultConfig()

	conf.Tree.MinBucketCapacity = 4

	conf.Churn.Ops = 5_000
	conf.Churn.Keys = 256
	conf.Churn.CloneRatio = 5
	conf.Churn.VerifyEvery = 500
	conf.Churn.Timeout = 30 * time.Second
	return conf
}
