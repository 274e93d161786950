package dab_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dabbridge/internal/dab"
)

func decode(t *testing.T, data []byte) map[string]interface{} {
	t.Helper()
	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &fields))
	return fields
}

func TestEncodeResult(t *testing.T) {
	t.Run("adds status to an object result", func(t *testing.T) {
		data, err := dab.EncodeResult(dab.StateResponse{State: "FOREGROUND"})
		require.NoError(t, err)

		fields := decode(t, data)
		assert.Equal(t, float64(200), fields["status"])
		assert.Equal(t, "FOREGROUND", fields["state"])
	})

	t.Run("treats nil as an empty object", func(t *testing.T) {
		data, err := dab.EncodeResult(nil)
		require.NoError(t, err)
		assert.JSONEq(t, `{"status":200}`, string(data))
	})

	t.Run("empty response carries only status", func(t *testing.T) {
		data, err := dab.EncodeResult(dab.EmptyResponse{})
		require.NoError(t, err)
		assert.JSONEq(t, `{"status":200}`, string(data))
	})

	t.Run("status from the handler is overwritten", func(t *testing.T) {
		data, err := dab.EncodeResult(map[string]interface{}{"status": 500, "healthy": true})
		require.NoError(t, err)
		assert.JSONEq(t, `{"status":200,"healthy":true}`, string(data))
	})

	t.Run("rejects non-object results", func(t *testing.T) {
		_, err := dab.EncodeResult([]string{"a"})
		assert.Error(t, err)
	})
}

func TestEncodeError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"bad request", dab.BadRequest("appId is required"), 400, "appId is required"},
		{"internal", dab.Internal("launch failed"), 500, "launch failed"},
		{"not implemented", dab.NotImplemented("foo/bar"), 501, "foo/bar operator not implemented"},
		{"foreign error", errors.New("boom"), 500, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := decode(t, dab.EncodeError(tt.err))
			assert.Equal(t, float64(tt.status), fields["status"])
			assert.Equal(t, tt.message, fields["error"])
			assert.Len(t, fields, 2)
		})
	}
}

func TestEncode(t *testing.T) {
	t.Run("error wins over result", func(t *testing.T) {
		data := dab.Encode(dab.EmptyResponse{}, dab.BadRequest("bad"))
		assert.JSONEq(t, `{"status":400,"error":"bad"}`, string(data))
	})

	t.Run("unencodable result becomes internal error", func(t *testing.T) {
		data := dab.Encode("not an object", nil)
		assert.Equal(t, float64(500), decode(t, data)["status"])
	})
}

func TestKindOf(t *testing.T) {
	t.Run("unwraps wrapped protocol errors", func(t *testing.T) {
		err := fmt.Errorf("while launching: %w", dab.BadRequest("missing"))
		assert.Equal(t, dab.KindBadRequest, dab.KindOf(err))
	})

	t.Run("defaults to internal", func(t *testing.T) {
		assert.Equal(t, dab.KindInternal, dab.KindOf(errors.New("x")))
	})

	t.Run("kind names", func(t *testing.T) {
		assert.Equal(t, "bad_request", dab.KindBadRequest.String())
		assert.Equal(t, "not_implemented", dab.KindNotImplemented.String())
		assert.Equal(t, "internal", dab.KindInternal.String())
	})
}
