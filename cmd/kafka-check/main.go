// Command kafka-check verifies the brokers are reachable and the harvester topics exist.
// With BIDPLUS_KAFKA_CREATE_TOPICS=true, missing topics are created on the controller.
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"bidplus-harvester/common"
)

type partitionReader interface {
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
}

func main() {
	brokers := common.EnvList("BIDPLUS_KAFKA_BROKERS", "localhost:9092")
	topics := []string{
		common.Env("BIDPLUS_KAFKA_RESULTS_TOPIC", "bidplus.results"),
		common.Env("BIDPLUS_KAFKA_FAILURES_TOPIC", "bidplus.failures"),
	}
	create := common.EnvBool("BIDPLUS_KAFKA_CREATE_TOPICS", false)
	partitions := common.EnvInt("BIDPLUS_KAFKA_TOPIC_PARTITIONS", 3)
	timeout := common.EnvDuration("BIDPLUS_KAFKA_CHECK_TIMEOUT", 5*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := run(ctx, os.Stdout, brokers, topics, create, partitions); err != nil {
		fmt.Fprintf(os.Stderr, "kafka check failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, brokers, topics []string, create bool, partitions int) error {
	if len(brokers) == 0 {
		return fmt.Errorf("no brokers configured")
	}

	var conn *kafka.Conn
	var lastErr error
	for _, broker := range brokers {
		conn, lastErr = kafka.DialContext(ctx, "tcp", broker)
		if lastErr == nil {
			fmt.Fprintf(out, "connected to Kafka at %s\n", broker)
			break
		}
		fmt.Fprintf(out, "broker %s unreachable: %v\n", broker, lastErr)
	}
	if conn == nil {
		return lastErr
	}
	defer conn.Close()

	missing, err := missingTopics(conn, topics, out)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}
	if !create {
		return fmt.Errorf("missing topics: %v", missing)
	}
	return createTopics(ctx, conn, missing, partitions, out)
}

// missingTopics reports each topic's partition count and returns those absent.
func missingTopics(conn partitionReader, topics []string, out io.Writer) ([]string, error) {
	all, err := conn.ReadPartitions()
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	counts := make(map[string]int)
	for _, p := range all {
		counts[p.Topic]++
	}

	var missing []string
	for _, topic := range topics {
		n, ok := counts[topic]
		if !ok {
			missing = append(missing, topic)
			fmt.Fprintf(out, "topic %s: missing\n", topic)
			continue
		}
		fmt.Fprintf(out, "topic %s: %d partitions\n", topic, n)
	}
	sort.Strings(missing)
	return missing, nil
}

func createTopics(ctx context.Context, conn *kafka.Conn, topics []string, partitions int, out io.Writer) error {
	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("find controller: %w", err)
	}
	addr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	cc, err := kafka.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial controller %s: %w", addr, err)
	}
	defer cc.Close()

	configs := make([]kafka.TopicConfig, 0, len(topics))
	for _, topic := range topics {
		configs = append(configs, kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     partitions,
			ReplicationFactor: 1,
		})
	}
	if err := cc.CreateTopics(configs...); err != nil {
		return fmt.Errorf("create topics: %w", err)
	}
	fmt.Fprintf(out, "created topics %v\n", topics)
	return nil
}
