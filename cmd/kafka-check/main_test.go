package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMetadata struct {
	partitions []kafka.Partition
	err        error
}

func (f fakeMetadata) ReadPartitions(...string) ([]kafka.Partition, error) {
	return f.partitions, f.err
}

func TestMissingTopics(t *testing.T) {
	meta := fakeMetadata{partitions: []kafka.Partition{
		{Topic: "bidplus.results", ID: 0},
		{Topic: "bidplus.results", ID: 1},
		{Topic: "other", ID: 0},
	}}
	var out bytes.Buffer

	missing, err := missingTopics(meta, []string{"bidplus.results", "bidplus.failures"}, &out)
	require.NoError(t, err)
	assert.Equal(t, []string{"bidplus.failures"}, missing)
	assert.Contains(t, out.String(), "topic bidplus.results: 2 partitions")
	assert.Contains(t, out.String(), "topic bidplus.failures: missing")
}

func TestMissingTopicsMetadataError(t *testing.T) {
	_, err := missingTopics(fakeMetadata{err: errors.New("boom")}, []string{"t"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "read metadata")
}

func TestRunRequiresBrokers(t *testing.T) {
	err := run(context.Background(), &bytes.Buffer{}, nil, []string{"t"}, false, 1)
	assert.ErrorContains(t, err, "no brokers")
}
