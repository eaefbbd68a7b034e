package payload

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("wire shape", func(t *testing.T) {
		p, err := New("link.created", "dash-1", map[string]string{"linkId": "l1"})
		require.NoError(t, err)

		bytes, err := p.Bytes()
		require.NoError(t, err)

		var decoded map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(bytes, &decoded))

		assert.Contains(t, decoded, "event")
		assert.Contains(t, decoded, "timestamp")
		assert.Contains(t, decoded, "dashboardId")
		assert.Contains(t, decoded, "data")
	})

	t.Run("timestamp is ISO-8601", func(t *testing.T) {
		p, err := New("link.clicked", "dash-1", map[string]int{"n": 1})
		require.NoError(t, err)

		bytes, err := p.Bytes()
		require.NoError(t, err)

		var decoded struct {
			Timestamp string `json:"timestamp"`
		}
		require.NoError(t, json.Unmarshal(bytes, &decoded))

		_, err = time.Parse(time.RFC3339, decoded.Timestamp)
		require.NoError(t, err)
	})

	t.Run("unmarshalable data", func(t *testing.T) {
		_, err := New("link.created", "dash-1", func() {})
		require.Error(t, err)
	})
}

func TestRoundTrip(t *testing.T) {
	p, err := New("dashboard.updated", "dash-9", map[string]string{"title": "new"})
	require.NoError(t, err)

	bytes, err := p.Bytes()
	require.NoError(t, err)

	var decoded Payload
	require.NoError(t, json.Unmarshal(bytes, &decoded))

	assert.Equal(t, p.Event, decoded.Event)
	assert.Equal(t, p.DashboardID, decoded.DashboardID)
	assert.JSONEq(t, string(p.Data), string(decoded.Data))
	assert.Equal(t, p.Timestamp.Truncate(time.Second).UTC(), decoded.Timestamp)
}

func TestNewTest(t *testing.T) {
	p := NewTest()

	assert.Equal(t, "link.clicked", p.Event)
	assert.Equal(t, "test", p.DashboardID)

	var data struct {
		Test    bool   `json:"test"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(p.Data, &data))
	assert.True(t, data.Test)
	assert.NotEmpty(t, data.Message)
}
