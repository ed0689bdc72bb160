package codec_test

import (
	"testing"

	"github.com/joeydtaylor/steeze-rpc/pkg/codec"
	"github.com/stretchr/testify/require"
)

type point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func TestJSONStrict_RejectsUnknownFields(t *testing.T) {
	var p point
	err := codec.JSONStrict.Unmarshal([]byte(`{"x":1,"y":2,"z":3}`), &p)
	require.Error(t, err)

	require.NoError(t, codec.JSON.Unmarshal([]byte(`{"x":1,"y":2,"z":3}`), &p))
	require.Equal(t, point{X: 1, Y: 2}, p)
}

func TestUnmarshal_RejectsTrailingContent(t *testing.T) {
	var p point
	require.Error(t, codec.JSON.Unmarshal([]byte(`{"x":1} {"x":2}`), &p))
}

func TestMarshal_DoesNotEscapeHTML(t *testing.T) {
	b, err := codec.JSONStrict.Marshal(map[string]string{"m": "<b>"})
	require.NoError(t, err)
	require.Equal(t, `{"m":"<b>"}`, string(b))
}

func TestByName(t *testing.T) {
	c, ok := codec.ByName("")
	require.True(t, ok)
	require.Equal(t, codec.JSONStrict, c)

	c, ok = codec.ByName(" JSON ")
	require.True(t, ok)
	require.Equal(t, codec.JSON, c)

	_, ok = codec.ByName("xml")
	require.False(t, ok)
}
