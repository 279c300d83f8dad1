package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cfg "github.com/spacemeshos/go-arenatree/config"
	"github.com/spacemeshos/go-arenatree/config/presets"
)

var config = cfg.DefaultConfig()

// AddCommands adds the shared flags to the command and binds them to viper.
func AddCommands(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP("preset", "p", "",
		fmt.Sprintf("preset overwrites default values of the config. options %+s", presets.Options()))
	cmd.PersistentFlags().StringVarP(&config.ConfigFile,
		"config", "c", config.ConfigFile, "Set Load configuration from file")
	cmd.PersistentFlags().StringVar(&config.LOGGING.Encoder, "log-encoder",
		config.LOGGING.Encoder, "Log as JSON instead of plain text")

	/** ======================== Tree Flags ========================== **/

	cmd.PersistentFlags().IntVar(&config.Tree.InitialCapacity, "initial-capacity",
		config.Tree.InitialCapacity, "number of slots in the head bucket of a new tree")
	cmd.PersistentFlags().IntVar(&config.Tree.MinBucketCapacity, "min-bucket-capacity",
		config.Tree.MinBucketCapacity, "smallest bucket added when a tree grows")
	cmd.PersistentFlags().BoolVar(&config.Tree.Multi, "multi",
		config.Tree.Multi, "allow elements with equal keys")

	/** ======================== Metrics Flags ========================== **/

	cmd.PersistentFlags().BoolVar(&config.Metrics.Collect, "collect-metrics",
		config.Metrics.Collect, "serve metrics while running")
	cmd.PersistentFlags().IntVar(&config.Metrics.Port, "metrics-port",
		config.Metrics.Port, "metric server port")
	cmd.PersistentFlags().StringVar(&config.Metrics.PushURL, "metrics-push-url",
		config.Metrics.PushURL, "push metrics to this pushgateway url when done")
	cmd.PersistentFlags().StringVar(&config.Metrics.PushJob, "metrics-push-job",
		config.Metrics.PushJob, "job name used when pushing metrics")
	cmd.PersistentFlags().StringToStringVar(&config.Metrics.PushHeaders, "metrics-push-headers",
		config.Metrics.PushHeaders, "headers added to the metrics push requests")

	// Bind Flags to config
	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		fmt.Println("an error has occurred while binding flags:", err)
	}
}

// AddChurnFlags adds the flags of the churn workload to the command.
func AddChurnFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&config.Churn.Ops, "ops",
		config.Churn.Ops, "number of operations to run")
	cmd.Flags().IntVar(&config.Churn.Keys, "keys",
		config.Churn.Keys, "size of the key space")
	cmd.Flags().Uint64Var(&config.Churn.Seed, "seed",
		config.Churn.Seed, "seed of the operation sequence")
	cmd.Flags().IntVar(&config.Churn.InsertRatio, "insert-ratio",
		config.Churn.InsertRatio, "percentage of inserts")
	cmd.Flags().IntVar(&config.Churn.EraseRatio, "erase-ratio",
		config.Churn.EraseRatio, "percentage of erasures")
	cmd.Flags().IntVar(&config.Churn.CloneRatio, "clone-ratio",
		config.Churn.CloneRatio, "percentage of clones")
	cmd.Flags().IntVar(&config.Churn.Snapshots, "snapshots",
		config.Churn.Snapshots, "number of clones kept alive")
	cmd.Flags().IntVar(&config.Churn.VerifyEvery, "verify-every",
		config.Churn.VerifyEvery, "check the tree invariants every that many operations, 0 to check only at the end")
	cmd.Flags().DurationVar(&config.Churn.Timeout, "timeout",
		config.Churn.Timeout, "stop the workload after this long")
	cmd.Flags().StringVar(&config.Churn.Report, "report",
		config.Churn.Report, "write the JSON report to this file")
	cmd.Flags().StringVar(&config.Churn.HandlesFile, "handles-file",
		config.Churn.HandlesFile, "write the SCALE-encoded raw indices of the live handles to this file")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		fmt.Println("an error has occurred while binding flags:", err)
	}
}
