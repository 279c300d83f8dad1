package presets

import (
	"time"

	"github.com/spacemeshos/go-arenatree/config"
)

func init() {
	register("stress", stress())
}

func stress() config.Config {
	conf := config.DefaultConfig()

	conf.Tree.Multi = true
	conf.Tree.InitialCapacity = 1 << 16
	conf.Tree.MinBucketCapacity = 1 << 12

	conf.Churn.Ops = 5_000_000
	conf.Churn.Keys = 1 << 20
	conf.Churn.InsertRatio = 55
	conf.Churn.EraseRatio = 35
	conf.Churn.CloneRatio = 1
	conf.Churn.Snapshots = 16
	conf.Churn.VerifyEvery = 500_000
	conf.Churn.Timeout = time.Hour

	conf.LOGGING.TreeLoggerLevel = "error"
	return conf
}
