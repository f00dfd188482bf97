package capture

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsNormalize(t *testing.T) {
	o := Options{URL: "http://127.0.0.1:8080/calendar"}
	require.NoError(t, o.normalize())
	assert.Equal(t, DefaultWidth, o.Width)
	assert.Equal(t, DefaultHeight, o.Height)
	assert.Equal(t, DefaultTimeout, o.Timeout)

	o = Options{URL: "http://x", Width: 800, Height: 600}
	require.NoError(t, o.normalize())
	assert.Equal(t, 800, o.Width)
	assert.Equal(t, 600, o.Height)
}

func TestSnapshotRequiresURL(t *testing.T) {
	_, err := Snapshot(context.Background(), Options{})
	assert.Error(t, err)

	err = SnapshotToFile(context.Background(), Options{URL: "http://x"}, "")
	assert.Error(t, err)
}
