package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arcade-catalog/internal/kafka"
)

// newPublishCmd creates the publish command
func newPublishCmd(opts *options) *cobra.Command {
	var brokers string
	var topic string

	cmd := &cobra.Command{
		Use:   "publish <games.json>",
		Short: "Publish games from a backup file onto the Kafka import topic",
		Long: `Publish every game in a backup file as one message on the import topic,
keyed by game id. Servers with kafka.enabled import them in batches.

Brokers and topic default to the kafka section of the config.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			games, err := readBackupFile(args[0])
			if err != nil {
				return err
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			brokerList := cfg.Kafka.Brokers
			if brokers != "" {
				brokerList = strings.Split(brokers, ",")
			}
			if topic == "" {
				topic = cfg.Kafka.Topic
			}

			producer, err := kafka.NewProducer(brokerList, topic, opts.newLogger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer producer.Close()

			n, err := producer.PublishGames(games)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Published %d games to %s\n", n, topic)
			return nil
		},
	}

	cmd.Flags().StringVar(&brokers, "brokers", "", "Kafka brokers (comma-separated)")
	cmd.Flags().StringVar(&topic, "topic", "", "Kafka topic")
	return cmd
}
