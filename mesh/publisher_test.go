package mesh

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPublisher(t *testing.T) {
	t.Setenv("MQTT_PUBLISH_PREFIX", "")
	publisher := NewPublisher(nil, "", nil)

	if publisher.Prefix() != DefaultPublishPrefix {
		t.Errorf("default prefix = %s, want %s", publisher.Prefix(), DefaultPublishPrefix)
	}
	if publisher.qos != 0 {
		t.Errorf("default QoS = %d, want 0", publisher.qos)
	}
	if !publisher.retain {
		t.Error("default retain should be true")
	}

	assert.Equal(t, "puzzles", NewPublisher(nil, "puzzles", nil).Prefix())
}

func TestNewPublisher_EnvOverride(t *testing.T) {
	t.Setenv("MQTT_PUBLISH_PREFIX", "from-env")
	assert.Equal(t, "from-env", NewPublisher(nil, "from-config", nil).Prefix())
}

func TestPublisher_PublishResult(t *testing.T) {
	t.Setenv("MQTT_PUBLISH_PREFIX", "")
	client := NewMockClient()
	client.SetConnected(true)
	publisher := NewPublisher(client, "tiles", nil)

	result := exampleSolution(t).Result
	require.NoError(t, publisher.PublishResult(result))

	msgs := client.Published()
	require.Len(t, msgs, 2)
	assert.Equal(t, "tiles/result", msgs[0].Topic)
	assert.True(t, msgs[0].Retain)
	assert.Equal(t, "tiles/runs/"+result.RunID, msgs[1].Topic)
	assert.False(t, msgs[1].Retain)

	var decoded Result
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &decoded))
	assert.Equal(t, exampleChecksum, decoded.Checksum)
	assert.Equal(t, exampleRoughness, decoded.Roughness)

	last, ok := publisher.LastResult()
	require.True(t, ok)
	assert.Equal(t, result.RunID, last.RunID)
}

func TestPublisher_NotConnected(t *testing.T) {
	publisher := NewPublisher(NewMockClient(), "", nil)
	assert.Error(t, publisher.PublishResult(Result{}))
	assert.Error(t, NewPublisher(nil, "", nil).PublishResult(Result{}))

	_, ok := publisher.LastResult()
	assert.False(t, ok)
}

func TestPublisher_PublishError(t *testing.T) {
	t.Setenv("MQTT_PUBLISH_PREFIX", "")
	client := NewMockClient()
	client.SetConnected(true)
	publisher := NewPublisher(client, "tiles", nil)

	require.NoError(t, publisher.PublishError("corpus.txt", errors.New("bad tile")))
	msgs := client.Published()
	require.Len(t, msgs, 1)
	assert.Equal(t, "tiles/error", msgs[0].Topic)
	assert.Contains(t, string(msgs[0].Payload), "bad tile")
}

func TestPublisher_BrokerError(t *testing.T) {
	client := NewMockClient()
	client.SetConnected(true)
	client.SetPublishError(errors.New("broker down"))
	publisher := NewPublisher(client, "", nil)

	err := publisher.PublishResult(Result{RunID: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestPublisher_SetQoSAndRetain(t *testing.T) {
	publisher := NewPublisher(nil, "", nil)
	publisher.SetQoS(2)
	assert.Equal(t, byte(2), publisher.qos)
	publisher.SetQoS(3)
	assert.Equal(t, byte(2), publisher.qos, "invalid QoS is ignored")
	publisher.SetRetain(false)
	assert.False(t, publisher.retain)
}
